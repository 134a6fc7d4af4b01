// Package batch generates one compiled confirmation document per participant.
//
// Participants are processed strictly in list order: render the template,
// write the source document, run the compiler, remove what the compiler left
// behind. Only the compiled output survives.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/confirmation-letters/internal/compile"
	"github.com/jonathan/confirmation-letters/internal/naming"
	"github.com/jonathan/confirmation-letters/internal/participants"
	"github.com/jonathan/confirmation-letters/internal/rendering"
)

const (
	// DefaultSourceExt is the extension of generated documents
	DefaultSourceExt = ".tex"
	// DefaultOutputExt is the extension of compiled documents
	DefaultOutputExt = ".pdf"
)

// FailurePolicy decides what a failing compiler run does to the batch
type FailurePolicy string

const (
	// FailurePolicyIgnore records the failure and moves on
	FailurePolicyIgnore FailurePolicy = "ignore"
	// FailurePolicyFailFast stops the batch at the first failure
	FailurePolicyFailFast FailurePolicy = "fail-fast"
)

// ProgressEvent is emitted as participants are processed
type ProgressEvent struct {
	Index   int
	Total   int
	Name    string
	Stage   string
	Message string
}

// ProgressCallback receives progress events
type ProgressCallback func(event ProgressEvent)

// Options configures a Generator
type Options struct {
	// WorkDir is where documents are written and the compiler runs
	WorkDir string
	// ParticipantsPath and TemplatePath are resolved against WorkDir when relative
	ParticipantsPath string
	TemplatePath     string

	SourceExt     string
	OutputExt     string
	AuxExtensions []string
	FailurePolicy FailurePolicy

	Namer    *naming.Namer
	Renderer *rendering.Renderer
	Compiler compile.Compiler

	Logger     *zap.Logger
	OnProgress ProgressCallback
}

// Generator runs the confirmation batch
type Generator struct {
	opts   Options
	logger *zap.Logger
}

// New validates opts, fills defaults and returns a Generator
func New(opts Options) (*Generator, error) {
	if opts.WorkDir == "" {
		return nil, &ConfigError{Message: "work dir is required"}
	}
	if opts.ParticipantsPath == "" {
		return nil, &ConfigError{Message: "participants path is required"}
	}
	if opts.TemplatePath == "" {
		return nil, &ConfigError{Message: "template path is required"}
	}
	if opts.Compiler == nil {
		return nil, &ConfigError{Message: "compiler is required"}
	}

	workDir, err := filepath.Abs(opts.WorkDir)
	if err != nil {
		return nil, &ConfigError{Message: fmt.Sprintf("invalid work dir %s: %v", opts.WorkDir, err)}
	}
	opts.WorkDir = workDir

	if opts.SourceExt == "" {
		opts.SourceExt = DefaultSourceExt
	}
	if opts.OutputExt == "" {
		opts.OutputExt = DefaultOutputExt
	}
	if opts.AuxExtensions == nil {
		opts.AuxExtensions = slices.Clone(compile.DefaultAuxExtensions)
	}
	switch opts.FailurePolicy {
	case "":
		opts.FailurePolicy = FailurePolicyIgnore
	case FailurePolicyIgnore, FailurePolicyFailFast:
	default:
		return nil, &ConfigError{Message: fmt.Sprintf("unknown failure policy %q", opts.FailurePolicy)}
	}
	if opts.Namer == nil {
		opts.Namer = naming.NewNamer(naming.DefaultPrefix, naming.DefaultTable())
	}
	if opts.Renderer == nil {
		opts.Renderer = rendering.NewRenderer(rendering.RendererOptions{})
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{opts: opts, logger: logger}, nil
}

// WorkDir returns the absolute working directory
func (g *Generator) WorkDir() string {
	return g.opts.WorkDir
}

func (g *Generator) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(g.opts.WorkDir, path)
}

func (g *Generator) emit(index, total int, name, stage, message string) {
	if g.opts.OnProgress != nil {
		g.opts.OnProgress(ProgressEvent{
			Index:   index,
			Total:   total,
			Name:    name,
			Stage:   stage,
			Message: message,
		})
	}
}

// Run processes every participant in the list. On a fatal error it stops
// and returns the report so far together with the error.
func (g *Generator) Run(ctx context.Context) (*Report, error) {
	report := newReport(g.opts.WorkDir)

	names, err := participants.Read(g.resolve(g.opts.ParticipantsPath))
	if err != nil {
		report.finish(false)
		return report, err
	}
	report.Total = len(names)

	g.logger.Info("Starting batch",
		zap.String("run_id", report.RunID.String()),
		zap.Int("participants", len(names)),
		zap.String("work_dir", g.opts.WorkDir))

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			report.finish(false)
			return report, err
		}

		g.emit(i, len(names), name, "start", "processing participant")
		outcome, err := g.Process(ctx, i, name)
		report.Outcomes = append(report.Outcomes, *outcome)
		if err != nil {
			g.logger.Error("Batch aborted",
				zap.Int("index", i),
				zap.String("name", name),
				zap.Error(err))
			report.finish(false)
			return report, err
		}
		g.emit(i, len(names), name, "done", string(outcome.Status))
	}

	report.finish(true)
	g.logger.Info("Batch finished",
		zap.String("run_id", report.RunID.String()),
		zap.Int("compiled", report.Compiled()),
		zap.Int("failed", report.Failed()))
	return report, nil
}

// Process generates and compiles the document for one participant.
// The returned outcome is never nil.
func (g *Generator) Process(ctx context.Context, index int, name string) (*Outcome, error) {
	start := time.Now()
	safe := g.opts.Namer.SafeFilename(name)
	outcome := &Outcome{
		Index:        index,
		Name:         name,
		SafeFilename: safe,
		SourceFile:   safe + g.opts.SourceExt,
		OutputFile:   safe + g.opts.OutputExt,
		Removed:      []string{},
	}
	fail := func(err error) (*Outcome, error) {
		outcome.Status = StatusFailed
		outcome.Error = err.Error()
		outcome.DurationMS = time.Since(start).Milliseconds()
		return outcome, err
	}

	log := g.logger.With(zap.Int("index", index), zap.String("name", name))

	doc, err := g.opts.Renderer.Render(g.resolve(g.opts.TemplatePath), name)
	if err != nil {
		return fail(err)
	}
	outcome.Replacements = doc.Replacements
	if doc.Replacements == 0 {
		log.Warn("Placeholder not found in template",
			zap.String("placeholder", g.opts.Renderer.Placeholder()),
			zap.String("template", g.opts.TemplatePath))
	}

	sourcePath := filepath.Join(g.opts.WorkDir, outcome.SourceFile)
	if err := os.WriteFile(sourcePath, []byte(doc.Text), 0644); err != nil {
		return fail(&WriteError{Path: sourcePath, Cause: err})
	}
	log.Debug("Wrote generated document", zap.String("file", outcome.SourceFile))

	before, snapErr := compile.TakeSnapshot(g.opts.WorkDir)
	if snapErr != nil {
		log.Warn("Could not snapshot work dir, only the generated document will be removed", zap.Error(snapErr))
	}

	result, compileErr := g.opts.Compiler.Compile(ctx, g.opts.WorkDir, outcome.SourceFile)
	if result != nil {
		outcome.ExitCode = result.ExitCode
	}

	var changed []string
	listed := false
	if before != nil {
		if changed, err = before.Changed(g.opts.WorkDir); err != nil {
			log.Warn("Could not list compiler artifacts", zap.Error(err))
		} else {
			listed = true
		}
	}
	outcome.OutputWritten = g.outputWritten(changed, listed, outcome.OutputFile)
	outcome.Removed = g.cleanup(log, changed, outcome.SourceFile)

	if compileErr != nil {
		var compErr *compile.CompilationError
		if !errors.As(compileErr, &compErr) || ctx.Err() != nil || g.opts.FailurePolicy == FailurePolicyFailFast {
			return fail(compileErr)
		}
		outcome.Status = StatusCompileFailed
		outcome.Error = compileErr.Error()
		log.Warn("Compiler failed, continuing",
			zap.Int("exit_code", outcome.ExitCode),
			zap.Error(compileErr))
	} else {
		outcome.Status = StatusCompiled
		log.Info("Compiled confirmation",
			zap.String("file", outcome.OutputFile),
			zap.Bool("output_written", outcome.OutputWritten))
	}

	outcome.DurationMS = time.Since(start).Milliseconds()
	return outcome, nil
}

// outputWritten reports whether this compilation produced outputFile.
// Without a change list it falls back to whether the file exists at all.
func (g *Generator) outputWritten(changed []string, listed bool, outputFile string) bool {
	if listed {
		return slices.Contains(changed, outputFile)
	}
	_, err := os.Stat(filepath.Join(g.opts.WorkDir, outputFile))
	return err == nil
}

// cleanup removes the auxiliary files among changed plus the generated
// source document. Failures are logged, never returned.
func (g *Generator) cleanup(log *zap.Logger, changed []string, sourceFile string) []string {
	var files []string
	for _, name := range compile.FilterByExtension(changed, g.opts.AuxExtensions) {
		if name != sourceFile {
			files = append(files, name)
		}
	}
	files = append(files, sourceFile)

	removed, err := compile.RemoveFiles(g.opts.WorkDir, files)
	if err != nil {
		log.Warn("Failed to remove some build artifacts", zap.Error(err))
	}
	if removed == nil {
		removed = []string{}
	}
	log.Debug("Removed build artifacts", zap.Strings("files", removed))
	return removed
}
