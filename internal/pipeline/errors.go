package pipeline

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrSpecMustBeSet  = errors.New("spec must be set")
	ErrInputMustBeSet = errors.New("input must be set")
)

// ConfigError reports a malformed pipeline spec: parameter or image index
// mismatches detected before any transform executes. Layer is -1 for
// spec-wide problems.
type ConfigError struct {
	Layer  int
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Layer < 0 {
		return fmt.Sprintf("invalid pipeline spec: %s", e.Reason)
	}
	return fmt.Sprintf("invalid pipeline spec at layer %d: %s", e.Layer, e.Reason)
}

// ComputeError reports that a transform could not produce a result. The run
// aborts, the partial buffer is discarded, and the failing layer index and
// cause reach the caller.
type ComputeError struct {
	Layer int
	Name  string
	Cause error
}

func (e *ComputeError) Error() string {
	return fmt.Sprintf("layer %d (%s) failed: %v", e.Layer, e.Name, e.Cause)
}

func (e *ComputeError) Unwrap() error {
	return e.Cause
}
