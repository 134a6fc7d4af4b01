package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jonathan/confirmation-letters/internal/config"
)

// configEnvVar names the config file when --config is not given
const configEnvVar = "CONFIRMGEN_CONFIG"

// resolveConfig merges the config file, defaults and flags, in rising priority
func resolveConfig(cmd *cobra.Command, validate bool) (*config.Config, error) {
	path := configFile
	if path == "" {
		path = os.Getenv(configEnvVar)
	}

	var fileCfg config.Config
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		fileCfg = *loaded
	}

	cfg := fileCfg.MergeWithDefaults(config.Defaults())
	applyFlags(cmd, &cfg)

	workDir, err := filepath.Abs(cfg.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve work dir: %w", err)
	}
	cfg.WorkDir = workDir

	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("work-dir") {
		cfg.WorkDir = workDirFlag
	}
	if flags.Changed("participants") {
		cfg.Participants = participantsFlag
	}
	if flags.Changed("template") {
		cfg.Template = templateFlag
	}
	if flags.Changed("placeholder") {
		cfg.Placeholder = placeholderFlag
	}
	if flags.Changed("verbose") && verbose {
		cfg.Verbose = true
	}

	// generate-only flags
	if flags.Lookup("compiler") == nil {
		return
	}
	if flags.Changed("compiler") {
		cfg.Compiler = generateCompiler
	}
	if flags.Changed("timeout") {
		cfg.TimeoutSeconds = generateTimeout
	}
	if flags.Changed("fail-fast") && generateFailFast {
		cfg.FailurePolicy = "fail-fast"
	}
	if flags.Changed("require-placeholder") && generateRequirePlaceholder {
		cfg.RequirePlaceholder = true
	}
	if flags.Changed("escape") && generateEscape {
		cfg.EscapeLaTeX = true
	}
}
