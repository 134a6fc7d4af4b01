// Package rendering substitutes participant names into document templates.
package rendering

import (
	"fmt"
	"os"
	"strings"
)

// DefaultPlaceholder is the token the confirmation template carries
const DefaultPlaceholder = "PLATZHALTER-NAMEN"

// Document is a template with a name substituted into it
type Document struct {
	Text         string
	Replacements int
}

// Renderer reads a template and substitutes a name for its placeholder
type Renderer struct {
	placeholder string
	escape      bool
	strict      bool
}

// RendererOptions configures a Renderer
type RendererOptions struct {
	Placeholder string
	// EscapeLaTeX escapes LaTeX special characters in the name before substitution
	EscapeLaTeX bool
	// RequirePlaceholder makes a template without the token an error
	RequirePlaceholder bool
}

// NewRenderer creates a Renderer. An empty placeholder falls back to DefaultPlaceholder.
func NewRenderer(opts RendererOptions) *Renderer {
	placeholder := opts.Placeholder
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}
	return &Renderer{
		placeholder: placeholder,
		escape:      opts.EscapeLaTeX,
		strict:      opts.RequirePlaceholder,
	}
}

// Placeholder returns the token the renderer replaces
func (r *Renderer) Placeholder() string {
	return r.placeholder
}

// Render reads the template at templatePath and substitutes name.
// The template is read on every call.
func (r *Renderer) Render(templatePath, name string) (*Document, error) {
	content, err := readTemplate(templatePath)
	if err != nil {
		return nil, err
	}

	value := name
	if r.escape {
		value = EscapeLaTeX(name)
	}

	text, n := Substitute(content, r.placeholder, value)
	if n == 0 && r.strict {
		return nil, &MissingPlaceholderError{TemplatePath: templatePath, Placeholder: r.placeholder}
	}

	return &Document{Text: text, Replacements: n}, nil
}

// Substitute replaces every literal occurrence of placeholder in text with
// value and reports how many were replaced. An empty placeholder replaces nothing.
func Substitute(text, placeholder, value string) (string, int) {
	if placeholder == "" {
		return text, 0
	}
	n := strings.Count(text, placeholder)
	if n == 0 {
		return text, 0
	}
	return strings.ReplaceAll(text, placeholder, value), n
}

func readTemplate(templatePath string) (string, error) {
	content, err := os.ReadFile(templatePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &TemplateError{
				Message: fmt.Sprintf("template file not found: %s", templatePath),
				Cause:   err,
			}
		}
		return "", &TemplateError{
			Message: fmt.Sprintf("failed to read template file: %s", templatePath),
			Cause:   err,
		}
	}
	return string(content), nil
}
