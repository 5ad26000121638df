package strategy

import (
	"encoding/json"
	"testing"

	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type RegistryTestSuite struct {
	suite.Suite
	registry *Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func (suite *RegistryTestSuite) SetupTest() {
	suite.registry = NewDefaultRegistry()
}

func (suite *RegistryTestSuite) TestDefaultRegistry() {
	suite.Equal([]string{BuyAndHoldName, RSIName, SMACrossoverName, StopLossLongName}, suite.registry.List())
}

func (suite *RegistryTestSuite) TestRegistriesAreIndependent() {
	suite.Require().NoError(suite.registry.Remove(RSIName))

	suite.NotContains(suite.registry.List(), RSIName)
	suite.Contains(NewDefaultRegistry().List(), RSIName)
	suite.Empty(NewRegistry().List())
}

func (suite *RegistryTestSuite) TestRegisterErrors() {
	err := suite.registry.Register(buyAndHoldRegistration())
	suite.True(errors.HasCode(err, errors.ErrCodeStrategyExists))

	err = suite.registry.Register(Registration{Name: "no-factory"})
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))

	_, err = suite.registry.Get("missing")
	suite.True(errors.HasCode(err, errors.ErrCodeStrategyNotRegistered))

	err = suite.registry.Remove("missing")
	suite.True(errors.HasCode(err, errors.ErrCodeStrategyNotRegistered))

	_, err = suite.registry.New("missing", "", Environment{})
	suite.True(errors.HasCode(err, errors.ErrCodeStrategyNotRegistered))
}

func (suite *RegistryTestSuite) TestNewWithConfig() {
	tests := []struct {
		name     string
		strategy string
		config   string
		code     errors.ErrorCode
	}{
		{"defaults", SMACrossoverName, "", 0},
		{"partial override", SMACrossoverName, "fast_period: 5", 0},
		{"fast not below slow", SMACrossoverName, "fast_period: 30\nslow_period: 30", errors.ErrCodeInvalidParameter},
		{"malformed yaml", SMACrossoverName, "fast_period: [", errors.ErrCodeInvalidParameter},
		{"rsi levels crossed", RSIName, "low: 80\nhigh: 70", errors.ErrCodeInvalidParameter},
		{"rsi period too short", RSIName, "period: 1", errors.ErrCodeInvalidParameter},
		{"fraction above one", BuyAndHoldName, "fraction: 1.5", errors.ErrCodeInvalidParameter},
		{"stop pct zero", StopLossLongName, "stop_pct: 0", errors.ErrCodeInvalidParameter},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			s, err := suite.registry.New(tc.strategy, tc.config, Environment{})
			if tc.code != 0 {
				suite.True(errors.HasCode(err, tc.code), "got %v", err)

				return
			}

			suite.Require().NoError(err)
			suite.Equal(tc.strategy, s.Name())
		})
	}
}

func (suite *RegistryTestSuite) TestConfigOverridesKeepDefaults() {
	s, err := suite.registry.New(SMACrossoverName, "fast_period: 5", Environment{})
	suite.Require().NoError(err)

	crossover, ok := s.(*SMACrossover)
	suite.Require().True(ok)
	suite.Equal(5, crossover.config.FastPeriod)
	suite.Equal(30, crossover.config.SlowPeriod)
}

func (suite *RegistryTestSuite) TestCapabilities() {
	tests := []struct {
		name       string
		strategy   string
		event      bool
		vectorized bool
	}{
		{"buy and hold", BuyAndHoldName, true, true},
		{"sma crossover", SMACrossoverName, false, true},
		{"rsi", RSIName, true, true},
		{"stop loss long", StopLossLongName, true, false},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			s, err := suite.registry.New(tc.strategy, "", Environment{})
			suite.Require().NoError(err)

			_, err = AsEventStrategy(s)
			suite.Equal(tc.event, err == nil)

			if !tc.event {
				suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
			}

			_, err = AsSignalProvider(s)
			suite.Equal(tc.vectorized, err == nil)
		})
	}
}

func (suite *RegistryTestSuite) TestSchema() {
	schema, err := suite.registry.Schema(SMACrossoverName)
	suite.Require().NoError(err)

	var decoded map[string]any
	suite.Require().NoError(json.Unmarshal([]byte(schema), &decoded))
	suite.Contains(schema, "fast_period")
	suite.Contains(schema, "slow_period")

	_, err = suite.registry.Schema("missing")
	suite.True(errors.HasCode(err, errors.ErrCodeStrategyNotRegistered))
}
