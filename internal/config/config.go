// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/confirmation-letters/internal/batch"
	"github.com/jonathan/confirmation-letters/internal/compile"
	"github.com/jonathan/confirmation-letters/internal/naming"
	"github.com/jonathan/confirmation-letters/internal/rendering"
)

// Config represents the generator configuration that can be loaded from a JSON or YAML file.
// All fields are optional in the file; missing values come from Defaults or CLI flags.
type Config struct {
	// WorkDir is where documents are generated and compiled; relative paths resolve against it
	WorkDir      string `json:"work_dir,omitempty" yaml:"work_dir,omitempty"`
	Participants string `json:"participants,omitempty" yaml:"participants,omitempty" validate:"required"`
	Template     string `json:"template,omitempty" yaml:"template,omitempty" validate:"required"`

	// Substitution
	Placeholder        string            `json:"placeholder,omitempty" yaml:"placeholder,omitempty" validate:"required"`
	EscapeLaTeX        bool              `json:"escape_latex,omitempty" yaml:"escape_latex,omitempty"`
	RequirePlaceholder bool              `json:"require_placeholder,omitempty" yaml:"require_placeholder,omitempty"`
	FilePrefix         string            `json:"file_prefix,omitempty" yaml:"file_prefix,omitempty"`
	Transliteration    map[string]string `json:"transliteration,omitempty" yaml:"transliteration,omitempty" validate:"dive,keys,required,endkeys"`

	// Compiler. A zero timeout means none.
	Compiler       string   `json:"compiler,omitempty" yaml:"compiler,omitempty" validate:"required"`
	CompilerArgs   []string `json:"compiler_args,omitempty" yaml:"compiler_args,omitempty"`
	TimeoutSeconds int      `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" validate:"gte=0"`
	FailurePolicy  string   `json:"failure_policy,omitempty" yaml:"failure_policy,omitempty" validate:"omitempty,oneof=ignore fail-fast"`

	// Files
	SourceExt     string   `json:"source_ext,omitempty" yaml:"source_ext,omitempty" validate:"omitempty,startswith=."`
	OutputExt     string   `json:"output_ext,omitempty" yaml:"output_ext,omitempty" validate:"omitempty,startswith=."`
	AuxExtensions []string `json:"aux_extensions,omitempty" yaml:"aux_extensions,omitempty" validate:"dive,required"`

	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty"`
}

// Defaults returns the configuration the confirmation letters were always built with
func Defaults() Config {
	return Config{
		WorkDir:         ".",
		Participants:    "participants.txt",
		Template:        "confirmation_template.tex",
		Placeholder:     rendering.DefaultPlaceholder,
		FilePrefix:      naming.DefaultPrefix,
		Transliteration: naming.DefaultTable(),
		Compiler:        compile.DefaultExecutable,
		CompilerArgs:    slices.Clone(compile.DefaultArgs),
		FailurePolicy:   string(batch.FailurePolicyIgnore),
		SourceExt:       batch.DefaultSourceExt,
		OutputExt:       batch.DefaultOutputExt,
		AuxExtensions:   slices.Clone(compile.DefaultAuxExtensions),
	}
}

// LoadConfig loads configuration from a JSON or YAML file, chosen by extension.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// It should be called after merging with Defaults and applying flags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	info, err := os.Stat(c.WorkDir)
	if err != nil {
		return fmt.Errorf("config error: work dir not found: %s", c.WorkDir)
	}
	if !info.IsDir() {
		return fmt.Errorf("config error: work dir is not a directory: %s", c.WorkDir)
	}

	if _, err := os.Stat(c.ResolvePath(c.Template)); os.IsNotExist(err) {
		return fmt.Errorf("config error: template file not found: %s", c.Template)
	}
	if _, err := os.Stat(c.ResolvePath(c.Participants)); os.IsNotExist(err) {
		return fmt.Errorf("config error: participant list not found: %s", c.Participants)
	}

	return nil
}

// ResolvePath joins relative paths onto WorkDir
func (c *Config) ResolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.WorkDir, path)
}

// Timeout returns the compiler timeout as a duration
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.WorkDir == "" {
		result.WorkDir = defaults.WorkDir
	}
	if result.Participants == "" {
		result.Participants = defaults.Participants
	}
	if result.Template == "" {
		result.Template = defaults.Template
	}
	if result.Placeholder == "" {
		result.Placeholder = defaults.Placeholder
	}
	if result.FilePrefix == "" {
		result.FilePrefix = defaults.FilePrefix
	}
	if result.Compiler == "" {
		result.Compiler = defaults.Compiler
	}
	if result.FailurePolicy == "" {
		result.FailurePolicy = defaults.FailurePolicy
	}
	if result.SourceExt == "" {
		result.SourceExt = defaults.SourceExt
	}
	if result.OutputExt == "" {
		result.OutputExt = defaults.OutputExt
	}

	// Slice and map fields: use default if unset, an explicit empty list is kept
	if result.CompilerArgs == nil {
		result.CompilerArgs = slices.Clone(defaults.CompilerArgs)
	}
	if result.AuxExtensions == nil {
		result.AuxExtensions = slices.Clone(defaults.AuxExtensions)
	}
	if result.Transliteration == nil {
		result.Transliteration = naming.Table(defaults.Transliteration).Clone()
	}

	// Int fields: use default if zero
	if result.TimeoutSeconds == 0 {
		result.TimeoutSeconds = defaults.TimeoutSeconds
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// GeneratorOptions builds batch options from the configuration
func (c *Config) GeneratorOptions() batch.Options {
	return batch.Options{
		WorkDir:          c.WorkDir,
		ParticipantsPath: c.Participants,
		TemplatePath:     c.Template,
		SourceExt:        c.SourceExt,
		OutputExt:        c.OutputExt,
		AuxExtensions:    slices.Clone(c.AuxExtensions),
		FailurePolicy:    batch.FailurePolicy(c.FailurePolicy),
		Namer:            naming.NewNamer(c.FilePrefix, c.Transliteration),
		Renderer: rendering.NewRenderer(rendering.RendererOptions{
			Placeholder:        c.Placeholder,
			EscapeLaTeX:        c.EscapeLaTeX,
			RequirePlaceholder: c.RequirePlaceholder,
		}),
		Compiler: compile.NewProcess(c.Compiler, c.CompilerArgs, c.Timeout()),
	}
}
