package batch

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jonathan/confirmation-letters/internal/compile"
	"github.com/jonathan/confirmation-letters/internal/participants"
	"github.com/jonathan/confirmation-letters/internal/rendering"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const template = `\documentclass{article}
\begin{document}
Confirmation for PLACEHOLDER-NAME.
\end{document}
`

// fakeCompiler records calls and drops the usual pdflatex by-products
type fakeCompiler struct {
	calls     []string
	sources   map[string]string
	artifacts []string
	failOn    map[string]int
}

func newFakeCompiler() *fakeCompiler {
	return &fakeCompiler{
		sources:   map[string]string{},
		artifacts: []string{".aux", ".log", ".synctex.gz", ".pdf"},
		failOn:    map[string]int{},
	}
}

func (f *fakeCompiler) Compile(_ context.Context, workDir, sourceFile string) (*compile.Result, error) {
	f.calls = append(f.calls, sourceFile)

	content, err := os.ReadFile(filepath.Join(workDir, sourceFile))
	if err != nil {
		return nil, err
	}
	f.sources[sourceFile] = string(content)

	stem := strings.TrimSuffix(sourceFile, filepath.Ext(sourceFile))
	for _, ext := range f.artifacts {
		if err := os.WriteFile(filepath.Join(workDir, stem+ext), []byte("artifact"), 0644); err != nil {
			return nil, err
		}
	}

	if code, ok := f.failOn[sourceFile]; ok {
		return &compile.Result{ExitCode: code}, &compile.CompilationError{
			Message:  "compiler exited with errors",
			ExitCode: code,
		}
	}
	return &compile.Result{ExitCode: 0}, nil
}

type fixture struct {
	dir      string
	compiler *fakeCompiler
}

func setup(t *testing.T, names string) *fixture {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "participants.txt"), []byte(names), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "confirmation_template.tex"), []byte(template), 0644))
	return &fixture{dir: dir, compiler: newFakeCompiler()}
}

func (f *fixture) options() Options {
	return Options{
		WorkDir:          f.dir,
		ParticipantsPath: "participants.txt",
		TemplatePath:     "confirmation_template.tex",
		Renderer:         rendering.NewRenderer(rendering.RendererOptions{Placeholder: "PLACEHOLDER-NAME"}),
		Compiler:         f.compiler,
	}
}

func (f *fixture) generator(t *testing.T, mutate ...func(*Options)) *Generator {
	t.Helper()
	opts := f.options()
	for _, m := range mutate {
		m(&opts)
	}
	g, err := New(opts)
	require.NoError(t, err)
	return g
}

func TestRun_TwoParticipants(t *testing.T) {
	f := setup(t, "Anna Müller\nJo Bloggs\n")
	g := f.generator(t)

	report, err := g.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"confirmation_Anna_Mueller.tex", "confirmation_Jo_Bloggs.tex"}, f.compiler.calls)
	assert.Contains(t, f.compiler.sources["confirmation_Anna_Mueller.tex"], "Confirmation for Anna Müller.")
	assert.Contains(t, f.compiler.sources["confirmation_Jo_Bloggs.tex"], "Confirmation for Jo Bloggs.")

	assert.True(t, report.Completed)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.Compiled())
	assert.Zero(t, report.Failed())
	assert.Zero(t, report.Pending())
	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, "confirmation_Anna_Mueller", report.Outcomes[0].SafeFilename)
	assert.Equal(t, "confirmation_Anna_Mueller.pdf", report.Outcomes[0].OutputFile)
	assert.True(t, report.Outcomes[0].OutputWritten)
	assert.Equal(t, 1, report.Outcomes[0].Replacements)
}

func TestRun_OnlyCompiledOutputRemains(t *testing.T) {
	f := setup(t, "Jo Bloggs\n")
	g := f.generator(t)

	report, err := g.Run(context.Background())
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(f.dir, "confirmation_Jo_Bloggs.pdf"))
	for _, ext := range []string{".tex", ".aux", ".log", ".synctex.gz"} {
		assert.NoFileExists(t, filepath.Join(f.dir, "confirmation_Jo_Bloggs"+ext))
	}
	assert.ElementsMatch(t, []string{
		"confirmation_Jo_Bloggs.aux",
		"confirmation_Jo_Bloggs.log",
		"confirmation_Jo_Bloggs.synctex.gz",
		"confirmation_Jo_Bloggs.tex",
	}, report.Outcomes[0].Removed)
}

func TestRun_UnrelatedArtifactsSurvive(t *testing.T) {
	f := setup(t, "Jo Bloggs\n")
	for _, name := range []string{"notes.log", "other.aux", "diagram.svg", "backup.gz"} {
		require.NoError(t, os.WriteFile(filepath.Join(f.dir, name), []byte("keep"), 0644))
	}
	g := f.generator(t)

	_, err := g.Run(context.Background())
	require.NoError(t, err)

	for _, name := range []string{"notes.log", "other.aux", "diagram.svg", "backup.gz"} {
		assert.FileExists(t, filepath.Join(f.dir, name))
	}
}

func TestRun_CompilerInvokedOncePerNameInOrder(t *testing.T) {
	f := setup(t, "C\nA\nB\nA\n")
	g := f.generator(t)

	report, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"confirmation_C.tex", "confirmation_A.tex", "confirmation_B.tex", "confirmation_A.tex"}, f.compiler.calls)
	assert.Len(t, report.Outcomes, 4)
}

func TestRun_EmptyName(t *testing.T) {
	f := setup(t, "Anna\n\nJo\n")
	g := f.generator(t)

	report, err := g.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "confirmation_.tex", f.compiler.calls[1])
	assert.Equal(t, "confirmation_", report.Outcomes[1].SafeFilename)
	assert.Contains(t, f.compiler.sources["confirmation_.tex"], "Confirmation for .")
}

func TestRun_Idempotent(t *testing.T) {
	f := setup(t, "Anna Müller\nJo Bloggs\n")

	first := f.generator(t)
	_, err := first.Run(context.Background())
	require.NoError(t, err)
	firstCalls := append([]string(nil), f.compiler.calls...)
	firstSources := map[string]string{}
	for k, v := range f.compiler.sources {
		firstSources[k] = v
	}

	f.compiler.calls = nil
	second := f.generator(t)
	_, err = second.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, firstCalls, f.compiler.calls)
	assert.Equal(t, firstSources, f.compiler.sources)
}

func TestRun_CompileFailureIgnoredByDefault(t *testing.T) {
	f := setup(t, "Anna\nJo\n")
	f.compiler.failOn["confirmation_Anna.tex"] = 1
	g := f.generator(t)

	report, err := g.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, f.compiler.calls, 2)
	assert.Equal(t, StatusCompileFailed, report.Outcomes[0].Status)
	assert.Equal(t, 1, report.Outcomes[0].ExitCode)
	assert.Contains(t, report.Outcomes[0].Error, "compiler exited with errors")
	assert.Equal(t, StatusCompiled, report.Outcomes[1].Status)
	assert.Equal(t, 1, report.Failed())
	assert.True(t, report.Completed)
	// cleanup still runs after a failed compile
	assert.NoFileExists(t, filepath.Join(f.dir, "confirmation_Anna.tex"))
	assert.NoFileExists(t, filepath.Join(f.dir, "confirmation_Anna.log"))
}

func TestRun_StaleOutputNotCountedAsWritten(t *testing.T) {
	f := setup(t, "Anna\nJo\n")
	stale := filepath.Join(f.dir, "confirmation_Anna.pdf")
	require.NoError(t, os.WriteFile(stale, []byte("from an earlier run"), 0644))
	f.compiler.artifacts = []string{".aux", ".log"}
	f.compiler.failOn["confirmation_Anna.tex"] = 1
	g := f.generator(t)

	report, err := g.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, StatusCompileFailed, report.Outcomes[0].Status)
	assert.False(t, report.Outcomes[0].OutputWritten)
	assert.False(t, report.Outcomes[1].OutputWritten)
	assert.FileExists(t, stale)
}

func TestRun_RewrittenOutputCountsAsWritten(t *testing.T) {
	f := setup(t, "Anna\n")
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "confirmation_Anna.pdf"), []byte("old"), 0644))
	g := f.generator(t)

	report, err := g.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 1)
	assert.True(t, report.Outcomes[0].OutputWritten)
}

func TestRun_CompileFailureFailFast(t *testing.T) {
	f := setup(t, "Anna\nJo\n")
	f.compiler.failOn["confirmation_Anna.tex"] = 1
	g := f.generator(t, func(o *Options) { o.FailurePolicy = FailurePolicyFailFast })

	report, err := g.Run(context.Background())
	require.Error(t, err)

	var compErr *compile.CompilationError
	assert.ErrorAs(t, err, &compErr)
	assert.Equal(t, []string{"confirmation_Anna.tex"}, f.compiler.calls)
	assert.False(t, report.Completed)
	assert.Equal(t, StatusFailed, report.Outcomes[0].Status)
	assert.Equal(t, 1, report.Pending())
	assert.NoFileExists(t, filepath.Join(f.dir, "confirmation_Anna.tex"))
}

func TestRun_MissingCompilerAbortsOnFirstParticipant(t *testing.T) {
	f := setup(t, "Anna\nJo\n")
	g := f.generator(t, func(o *Options) {
		o.Compiler = compile.NewProcess("confirmgen-no-such-compiler", nil, 0)
	})

	report, err := g.Run(context.Background())
	require.Error(t, err)

	var notFound *compile.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.ErrorIs(t, err, exec.ErrNotFound)

	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, "Anna", report.Outcomes[0].Name)
	assert.Equal(t, StatusFailed, report.Outcomes[0].Status)
	assert.Equal(t, 1, report.Pending())
	assert.NoFileExists(t, filepath.Join(f.dir, "confirmation_Anna.tex"))
	assert.NoFileExists(t, filepath.Join(f.dir, "confirmation_Jo.tex"))
}

func TestRun_UnsafeNameFailsToWrite(t *testing.T) {
	// '/' is not in the table, so the name is used as a path and the write fails.
	f := setup(t, "Jo\nAC/DC\nAnna\n")
	g := f.generator(t)

	report, err := g.Run(context.Background())
	require.Error(t, err)

	var writeErr *WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, filepath.Join(g.WorkDir(), "confirmation_AC/DC.tex"), writeErr.Path)

	assert.Equal(t, []string{"confirmation_Jo.tex"}, f.compiler.calls)
	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, StatusCompiled, report.Outcomes[0].Status)
	assert.Equal(t, "confirmation_AC/DC", report.Outcomes[1].SafeFilename)
	assert.Equal(t, StatusFailed, report.Outcomes[1].Status)
}

func TestRun_MissingParticipantList(t *testing.T) {
	f := setup(t, "")
	g := f.generator(t, func(o *Options) { o.ParticipantsPath = "missing.txt" })

	report, err := g.Run(context.Background())
	require.Error(t, err)
	var readErr *participants.ReadError
	assert.ErrorAs(t, err, &readErr)
	assert.Empty(t, report.Outcomes)
	assert.Empty(t, f.compiler.calls)
}

func TestRun_MissingTemplate(t *testing.T) {
	f := setup(t, "Jo\n")
	g := f.generator(t, func(o *Options) { o.TemplatePath = "missing.tex" })

	_, err := g.Run(context.Background())
	require.Error(t, err)
	var templateErr *rendering.TemplateError
	assert.ErrorAs(t, err, &templateErr)
	assert.Empty(t, f.compiler.calls)
}

func TestRun_MissingPlaceholderLenient(t *testing.T) {
	f := setup(t, "Jo\n")
	g := f.generator(t, func(o *Options) {
		o.Renderer = rendering.NewRenderer(rendering.RendererOptions{Placeholder: "NOT-THERE"})
	})

	report, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Outcomes[0].Replacements)
	assert.Equal(t, template, f.compiler.sources["confirmation_Jo.tex"])
}

func TestRun_MissingPlaceholderStrict(t *testing.T) {
	f := setup(t, "Jo\n")
	g := f.generator(t, func(o *Options) {
		o.Renderer = rendering.NewRenderer(rendering.RendererOptions{Placeholder: "NOT-THERE", RequirePlaceholder: true})
	})

	_, err := g.Run(context.Background())
	require.Error(t, err)
	var missing *rendering.MissingPlaceholderError
	assert.ErrorAs(t, err, &missing)
	assert.Empty(t, f.compiler.calls)
}

func TestRun_CanceledContext(t *testing.T) {
	f := setup(t, "Anna\nJo\n")
	g := f.generator(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := g.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.compiler.calls)
	assert.Equal(t, 2, report.Pending())
}

func TestRun_AbsolutePathsNotResolved(t *testing.T) {
	f := setup(t, "Jo\n")
	listDir := t.TempDir()
	listPath := filepath.Join(listDir, "list.txt")
	require.NoError(t, os.WriteFile(listPath, []byte("Anna\n"), 0644))

	g := f.generator(t, func(o *Options) { o.ParticipantsPath = listPath })
	_, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"confirmation_Anna.tex"}, f.compiler.calls)
}

func TestRun_ProgressEvents(t *testing.T) {
	f := setup(t, "Anna\nJo\n")
	var events []ProgressEvent
	g := f.generator(t, func(o *Options) {
		o.OnProgress = func(e ProgressEvent) { events = append(events, e) }
	})

	_, err := g.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, "start", events[0].Stage)
	assert.Equal(t, "Anna", events[0].Name)
	assert.Equal(t, 2, events[0].Total)
	assert.Equal(t, "done", events[3].Stage)
	assert.Equal(t, string(StatusCompiled), events[3].Message)
}

func TestRun_WithProcessCompiler(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available, skipping subprocess test")
	}
	f := setup(t, "Anna Müller\n")
	script := `stem="${1%.tex}"; cp "$1" "$stem.pdf"; echo log > "$stem.log"; echo aux > "$stem.aux"`
	g := f.generator(t, func(o *Options) {
		o.Compiler = compile.NewProcess("sh", []string{"-c", script, "sh"}, 0)
	})

	report, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusCompiled, report.Outcomes[0].Status)

	pdf, err := os.ReadFile(filepath.Join(f.dir, "confirmation_Anna_Mueller.pdf"))
	require.NoError(t, err)
	assert.Contains(t, string(pdf), "Confirmation for Anna Müller.")
	assert.NoFileExists(t, filepath.Join(f.dir, "confirmation_Anna_Mueller.log"))
	assert.NoFileExists(t, filepath.Join(f.dir, "confirmation_Anna_Mueller.aux"))
	assert.NoFileExists(t, filepath.Join(f.dir, "confirmation_Anna_Mueller.tex"))
}

func TestNew_Validation(t *testing.T) {
	f := setup(t, "")
	tests := []struct {
		name   string
		mutate func(*Options)
		msg    string
	}{
		{"no work dir", func(o *Options) { o.WorkDir = "" }, "work dir is required"},
		{"no participants", func(o *Options) { o.ParticipantsPath = "" }, "participants path is required"},
		{"no template", func(o *Options) { o.TemplatePath = "" }, "template path is required"},
		{"no compiler", func(o *Options) { o.Compiler = nil }, "compiler is required"},
		{"bad policy", func(o *Options) { o.FailurePolicy = "retry" }, "unknown failure policy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := f.options()
			tt.mutate(&opts)
			_, err := New(opts)
			require.Error(t, err)
			var cfgErr *ConfigError
			assert.ErrorAs(t, err, &cfgErr)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	f := setup(t, "")
	g, err := New(f.options())
	require.NoError(t, err)

	assert.Equal(t, DefaultSourceExt, g.opts.SourceExt)
	assert.Equal(t, DefaultOutputExt, g.opts.OutputExt)
	assert.Equal(t, compile.DefaultAuxExtensions, g.opts.AuxExtensions)
	assert.Equal(t, FailurePolicyIgnore, g.opts.FailurePolicy)
	assert.NotNil(t, g.opts.Namer)
	assert.True(t, filepath.IsAbs(g.WorkDir()))
}
