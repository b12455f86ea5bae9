package determinism

import (
	"errors"
	"fmt"
)

// ConfigurationError reports that the deterministic sources could not be
// built or installed. It is raised before any fixture is processed.
type ConfigurationError struct {
	// Reason is a human-readable description.
	Reason string

	// Err is the underlying cause, if any.
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("determinism configuration: %s: %v", e.Reason, e.Err)
	}
	return "determinism configuration: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err wraps a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
