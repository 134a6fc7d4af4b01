// Package batch generates one compiled confirmation document per participant.
package batch

import "fmt"

// WriteError represents a failure to write a generated document
type WriteError struct {
	Path  string
	Cause error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write error: failed to write generated document %s: %v", e.Path, e.Cause)
}

func (e *WriteError) Unwrap() error {
	return e.Cause
}

// ConfigError represents invalid generator options
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("batch config error: %s", e.Message)
}
