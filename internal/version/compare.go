package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// CheckConfigCompatibility checks that a config written for configVersion can run on
// engineVersion. Returns nil if compatible, an ErrCodeInvalidVersion error if not.
//
// Compatibility Rules:
//   - An empty config version means the config does not pin one
//   - If either version is "main" (development build), the check is skipped
//   - Major versions must match exactly
//   - The engine must be at least the config version (^config)
//
// Examples:
//   - Engine 1.2.0, Config 1.2.0 -> OK
//   - Engine 1.3.1, Config 1.2.0 -> OK (newer engine, same major)
//   - Engine 1.1.0, Config 1.2.0 -> ERROR (config needs newer engine)
//   - Engine 2.0.0, Config 1.2.0 -> ERROR (major differs)
func CheckConfigCompatibility(engineVersion, configVersion string) error {
	engineVersion = strings.TrimPrefix(engineVersion, "v")
	configVersion = strings.TrimPrefix(configVersion, "v")

	if configVersion == "" || engineVersion == "main" || configVersion == "main" {
		return nil
	}

	engineSemver, err := semver.NewVersion(engineVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid engine version '%s'", engineVersion)
	}

	configSemver, err := semver.NewVersion(configVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid config version '%s'", configVersion)
	}

	if engineSemver.Major() != configSemver.Major() {
		return errors.Newf(errors.ErrCodeInvalidVersion,
			"major version mismatch: engine is %d.x.x but config requires %d.x.x",
			engineSemver.Major(), configSemver.Major())
	}

	constraint, err := semver.NewConstraint(fmt.Sprintf("^%s", configSemver.String()))
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid config version '%s'", configVersion)
	}

	// prereleases of the engine are compared on their release triple
	release, _ := engineSemver.SetPrerelease("")
	if !constraint.Check(&release) {
		return errors.Newf(errors.ErrCodeInvalidVersion,
			"engine %s is older than config version %s", engineSemver, configSemver)
	}

	return nil
}
