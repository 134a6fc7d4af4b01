// Package participants reads participant lists.
package participants

import "fmt"

// ReadError represents a failure to open or read a participant list
type ReadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *ReadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("participant list error: %s: %s: %v", e.Message, e.Path, e.Cause)
	}
	return fmt.Sprintf("participant list error: %s: %s", e.Message, e.Path)
}

func (e *ReadError) Unwrap() error {
	return e.Cause
}
