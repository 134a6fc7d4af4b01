package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/jonathan/confirmation-letters/internal/batch"
	"github.com/jonathan/confirmation-letters/internal/logging"
	"github.com/jonathan/confirmation-letters/internal/observability"
	"github.com/jonathan/confirmation-letters/internal/schemas"
	schemafiles "github.com/jonathan/confirmation-letters/schemas"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate and compile a confirmation for every participant",
	Long:  "Reads the participant list, substitutes each name into the template, compiles the result and removes the build artifacts. Only the compiled documents are left behind.",
	Args:  cobra.NoArgs,
	RunE:  runGenerate,
}

var (
	generateCompiler           string
	generateTimeout            int
	generateFailFast           bool
	generateRequirePlaceholder bool
	generateEscape             bool
	generateReportFile         string
)

func init() {
	addGenerateFlags(generateCmd.Flags())
	rootCmd.AddCommand(generateCmd)
}

func addGenerateFlags(fs *pflag.FlagSet) {
	fs.StringVar(&generateCompiler, "compiler", "", "Compiler executable (default: pdflatex)")
	fs.IntVar(&generateTimeout, "timeout", 0, "Per-participant compiler timeout in seconds, 0 for none")
	fs.BoolVar(&generateFailFast, "fail-fast", false, "Stop at the first compiler failure")
	fs.BoolVar(&generateRequirePlaceholder, "require-placeholder", false, "Fail when the template does not contain the placeholder")
	fs.BoolVar(&generateEscape, "escape", false, "Escape LaTeX special characters in names")
	fs.StringVarP(&generateReportFile, "report", "o", "", "Write a JSON run report to this path (optional)")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd, true)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	printer := observability.NewPrinter(os.Stdout)

	opts := cfg.GeneratorOptions()
	opts.Logger = logger
	opts.OnProgress = printer.PrintProgress

	gen, err := batch.New(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, runErr := gen.Run(ctx)
	printer.PrintReport(report)

	if generateReportFile != "" {
		if err := writeReport(report, generateReportFile, logger); err != nil {
			return errors.Join(runErr, err)
		}
		_, _ = fmt.Fprintf(os.Stdout, "Report: %s\n", generateReportFile)
	}

	if runErr != nil {
		return fmt.Errorf("batch failed: %w", runErr)
	}
	return nil
}

// writeReport writes the report as JSON and checks it against the embedded schema.
// A schema mismatch is logged, not returned.
func writeReport(report *batch.Report, path string, logger *zap.Logger) error {
	jsonBytes, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report to JSON: %w", err)
	}

	outputDir := filepath.Dir(path)
	if outputDir != "" && outputDir != "." {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if err := os.WriteFile(path, jsonBytes, 0644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}

	if err := schemas.ValidateJSONBytes(schemafiles.BatchReport, jsonBytes); err != nil {
		var validationErr *schemas.ValidationError
		if errors.As(err, &validationErr) {
			logger.Warn("Report does not validate against schema", zap.Error(err))
		} else {
			logger.Warn("Could not validate report against schema", zap.Error(err))
		}
	}
	return nil
}
