package utils

import (
	"math"
)

func (suite *UtilsTestSuite) TestMean() {
	suite.InDelta(2.0, Mean([]float64{1, 2, 3}), 1e-12)
	suite.True(math.IsNaN(Mean(nil)))
}

func (suite *UtilsTestSuite) TestSampleStd() {
	suite.InDelta(math.Sqrt(2.5), SampleStd([]float64{1, 2, 3, 4, 5}), 1e-12)
	suite.True(math.IsNaN(SampleStd([]float64{1})))
	suite.Equal(0.0, SampleStd([]float64{3, 3, 3}))
}

func (suite *UtilsTestSuite) TestPctChange() {
	out := PctChange([]float64{100, 110, 99})
	suite.True(math.IsNaN(out[0]))
	suite.InDelta(0.1, out[1], 1e-12)
	suite.InDelta(-0.1, out[2], 1e-12)
	suite.Empty(PctChange(nil))
}

func (suite *UtilsTestSuite) TestPercentile() {
	tests := []struct {
		name     string
		values   []float64
		q        float64
		expected float64
	}{
		{"median of odd count", []float64{3, 1, 2}, 50, 2},
		{"linear between ranks", []float64{1, 2, 3, 4}, 50, 2.5},
		{"lower tail", []float64{0, 10, 20, 30, 40}, 2.5, 1},
		{"upper tail", []float64{0, 10, 20, 30, 40}, 97.5, 39},
		{"single value", []float64{7}, 97.5, 7},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.InDelta(tc.expected, Percentile(tc.values, tc.q), 1e-12)
		})
	}

	values := []float64{3, 1, 2}
	Percentile(values, 50)
	suite.Equal([]float64{3, 1, 2}, values)
	suite.True(math.IsNaN(Percentile(nil, 50)))
}
