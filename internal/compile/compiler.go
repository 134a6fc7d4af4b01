// Package compile runs the external document compiler and cleans up after it.
package compile

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// DefaultExecutable is the compiler used when none is configured
const DefaultExecutable = "pdflatex"

// DefaultArgs are passed to the compiler before the source file.
// nonstopmode keeps pdflatex from waiting on stdin when the document has errors.
var DefaultArgs = []string{"-interaction=nonstopmode"}

const killWaitDelay = 2 * time.Second

// Compiler turns a generated source file into a final document
type Compiler interface {
	// Compile runs the compiler on sourceFile, a name relative to workDir,
	// with workDir as the working directory. A non-nil Result may accompany an error.
	Compile(ctx context.Context, workDir, sourceFile string) (*Result, error)
}

// Result describes a finished compiler run
type Result struct {
	ExitCode int
	Output   string
	Duration time.Duration
}

// Process runs an external executable as the compiler
type Process struct {
	Executable string
	Args       []string
	// Timeout bounds a single run; zero means no limit
	Timeout time.Duration
}

// NewProcess creates a Process. An empty executable falls back to DefaultExecutable.
func NewProcess(executable string, args []string, timeout time.Duration) *Process {
	if executable == "" {
		executable = DefaultExecutable
	}
	return &Process{
		Executable: executable,
		Args:       slices.Clone(args),
		Timeout:    timeout,
	}
}

// resolveExecutable anchors a relative path like ./bin/latex at workDir.
// Bare names are left for PATH lookup.
func (p *Process) resolveExecutable(workDir string) string {
	exe := p.Executable
	if filepath.IsAbs(exe) || !strings.ContainsAny(exe, "/"+string(filepath.Separator)) {
		return exe
	}
	return filepath.Join(workDir, exe)
}

// Compile implements Compiler
func (p *Process) Compile(ctx context.Context, workDir, sourceFile string) (*Result, error) {
	path, err := exec.LookPath(p.resolveExecutable(workDir))
	if err != nil {
		return nil, &NotFoundError{Executable: p.Executable, Cause: err}
	}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	args := append(slices.Clone(p.Args), sourceFile)
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = workDir
	// Children that inherit the output pipe must not block Wait after a kill
	cmd.WaitDelay = killWaitDelay

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	start := time.Now()
	runErr := cmd.Run()

	result := &Result{
		ExitCode: -1,
		Output:   output.String(),
		Duration: time.Since(start),
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if runErr == nil {
		return result, nil
	}

	compErr := &CompilationError{
		Message:   "compiler exited with errors",
		ExitCode:  result.ExitCode,
		LogOutput: result.Output,
		Cause:     runErr,
	}
	var exitErr *exec.ExitError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		compErr.Message = "compiler timed out"
		compErr.Cause = ctx.Err()
	case errors.Is(ctx.Err(), context.Canceled):
		compErr.Message = "compiler run canceled"
		compErr.Cause = ctx.Err()
	case !errors.As(runErr, &exitErr):
		compErr.Message = "failed to start compiler"
	}
	return result, compErr
}
