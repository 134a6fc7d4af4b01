// Package rendering substitutes participant names into document templates.
package rendering

import "fmt"

// TemplateError represents an error reading a template
type TemplateError struct {
	Message string
	Cause   error
}

func (e *TemplateError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("template error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("template error: %s", e.Message)
}

func (e *TemplateError) Unwrap() error {
	return e.Cause
}

// MissingPlaceholderError is returned in strict mode when the template does
// not contain the placeholder token
type MissingPlaceholderError struct {
	TemplatePath string
	Placeholder  string
}

func (e *MissingPlaceholderError) Error() string {
	return fmt.Sprintf("template error: placeholder %q not found in %s", e.Placeholder, e.TemplatePath)
}
