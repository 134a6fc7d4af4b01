// Package compile runs the external document compiler and cleans up after it.
package compile

import "fmt"

// NotFoundError is returned when the compiler executable cannot be located
type NotFoundError struct {
	Executable string
	Cause      error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("compiler error: %s not found in PATH: %v", e.Executable, e.Cause)
}

func (e *NotFoundError) Unwrap() error {
	return e.Cause
}

// CompilationError represents a compiler run that did not exit cleanly
type CompilationError struct {
	Message   string
	ExitCode  int
	LogOutput string
	Cause     error
}

func (e *CompilationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("compilation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("compilation error: %s", e.Message)
}

func (e *CompilationError) Unwrap() error {
	return e.Cause
}
