// Package version pins the runtime version and checks config
// compatibility.
package version

import (
	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/argo-script/pkg/errors"
)

// Version is the current runtime version.
const Version = "1.0.0"

// CheckCompatibility verifies that a config written for the given API
// version can run on this runtime: same major version and not newer
// than the runtime.
func CheckCompatibility(required string) error {
	if required == "" {
		return nil
	}

	requiredVersion, err := semver.NewVersion(required)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeVersionMismatch, err, "invalid api_version %q", required)
	}

	current := semver.MustParse(Version)

	if requiredVersion.Major() != current.Major() {
		return errors.Newf(errors.ErrCodeVersionMismatch,
			"api_version %s requires major version %d, runtime is %s", required, requiredVersion.Major(), Version)
	}

	if requiredVersion.GreaterThan(current) {
		return errors.Newf(errors.ErrCodeVersionMismatch,
			"api_version %s is newer than runtime %s", required, Version)
	}

	return nil
}
