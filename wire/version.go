package wire

import (
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// ProtocolVersion is announced by clients in their Hello.
const ProtocolVersion = "1.0.0"

// compatible lists the client versions this server talks to.
const compatible = "^1.0"

var ErrIncompatibleVersion = errors.New("incompatible protocol version")

var constraint = func() *semver.Constraints {
	c, err := semver.NewConstraint(compatible)
	if err != nil {
		panic(err)
	}
	return c
}()

// CheckVersion accepts client versions within the supported major version.
func CheckVersion(version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrIncompatibleVersion, version, err)
	}
	if !constraint.Check(v) {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrIncompatibleVersion, v, compatible)
	}
	return nil
}
