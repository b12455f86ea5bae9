package harness

import (
	"errors"
	"fmt"
)

// Phase names a stage of a run.
type Phase string

const (
	PhaseInstall Phase = "install"
	PhaseLoad    Phase = "load"
	PhaseInvoke  Phase = "invoke"
)

// PhaseError attributes a fatal error to the phase that raised it.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s phase failed: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// PhaseOf returns the phase of a wrapped *PhaseError, or "".
func PhaseOf(err error) Phase {
	var pe *PhaseError
	if errors.As(err, &pe) {
		return pe.Phase
	}
	return ""
}

// ErrMultiLine is returned when a signature would not fit on one line.
var ErrMultiLine = errors.New("signature contains a line break")
