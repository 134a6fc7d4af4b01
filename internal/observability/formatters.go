// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/confirmation-letters/internal/batch"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(title))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens a line to fit inside a box
func truncate(line string) string {
	runes := []rune(line)
	if len(runes) > boxWidth-4 {
		return string(runes[:boxWidth-7]) + "..."
	}
	return line
}

// PrintProgress outputs a one-line progress update
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(event batch.ProgressEvent) {
	switch event.Stage {
	case "start":
		fmt.Fprintf(p.out, "[%d/%d] %s\n", event.Index+1, event.Total, event.Name)
	case "done":
		fmt.Fprintf(p.out, "[%d/%d] %s: %s\n", event.Index+1, event.Total, event.Name, event.Message)
	}
}

// PrintReport outputs a human-readable summary of a batch run
func (p *Printer) PrintReport(report *batch.Report) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:       %s\n", report.RunID))
	sb.WriteString(fmt.Sprintf("Work dir:  %s\n", report.WorkDir))
	sb.WriteString(fmt.Sprintf("Total:     %d\n", report.Total))
	sb.WriteString(fmt.Sprintf("Compiled:  %d\n", report.Compiled()))
	sb.WriteString(fmt.Sprintf("Failed:    %d\n", report.Failed()))
	if pending := report.Pending(); pending > 0 {
		sb.WriteString(fmt.Sprintf("Pending:   %d\n", pending))
	}
	sb.WriteString(fmt.Sprintf("Duration:  %s\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond)))

	var failed []batch.Outcome
	for _, o := range report.Outcomes {
		if o.Status != batch.StatusCompiled {
			failed = append(failed, o)
		}
	}
	if len(failed) > 0 {
		sb.WriteString("\nFailures:\n")
		count := min(len(failed), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s (%s, exit %d)\n", failed[i].Name, failed[i].Status, failed[i].ExitCode))
		}
		if len(failed) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(failed)-maxItemsToShow))
		}
	}

	title := "BATCH COMPLETE"
	if !report.Completed {
		title = "BATCH ABORTED"
	}
	p.printBox(title, sb.String())
}

// NameRow is one line of a dry-run listing
type NameRow struct {
	Name       string
	SourceFile string
}

// PrintNames outputs the file each participant would be generated into
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintNames(rows []NameRow) {
	for i, row := range rows {
		fmt.Fprintf(p.out, "%3d  %-30q -> %s\n", i+1, row.Name, row.SourceFile)
	}
}
