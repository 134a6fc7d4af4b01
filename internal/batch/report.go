// Package batch generates one compiled confirmation document per participant.
package batch

import (
	"time"

	"github.com/google/uuid"
)

// Status is the result of processing one participant
type Status string

const (
	// StatusCompiled means the compiler exited cleanly
	StatusCompiled Status = "compiled"
	// StatusCompileFailed means the compiler failed and the batch continued
	StatusCompileFailed Status = "compile_failed"
	// StatusFailed means processing stopped the batch
	StatusFailed Status = "failed"
)

// Outcome records what happened for one participant
type Outcome struct {
	Index         int      `json:"index"`
	Name          string   `json:"name"`
	SafeFilename  string   `json:"safe_filename"`
	SourceFile    string   `json:"source_file"`
	OutputFile    string   `json:"output_file"`
	// OutputWritten is true when this compilation created or rewrote
	// OutputFile. A stale file from an earlier run does not count, unless the
	// work dir could not be listed and only existence could be checked.
	OutputWritten bool     `json:"output_written"`
	Status        Status   `json:"status"`
	ExitCode      int      `json:"exit_code"`
	Replacements  int      `json:"replacements"`
	Error         string   `json:"error,omitempty"`
	Removed       []string `json:"removed"`
	DurationMS    int64    `json:"duration_ms"`
}

// Report summarizes a batch run. A run that stopped early still has a
// report covering the participants handled before the stop.
type Report struct {
	RunID      uuid.UUID `json:"run_id"`
	WorkDir    string    `json:"work_dir"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Total      int       `json:"total"`
	Completed  bool      `json:"completed"`
	Outcomes   []Outcome `json:"outcomes"`
}

func newReport(workDir string) *Report {
	return &Report{
		RunID:     uuid.New(),
		WorkDir:   workDir,
		StartedAt: time.Now().UTC(),
		Outcomes:  []Outcome{},
	}
}

func (r *Report) finish(completed bool) {
	r.FinishedAt = time.Now().UTC()
	r.Completed = completed
}

// Compiled counts participants whose compiler run succeeded
func (r *Report) Compiled() int {
	return r.count(StatusCompiled)
}

// Failed counts participants whose compiler run or processing failed
func (r *Report) Failed() int {
	return r.count(StatusCompileFailed) + r.count(StatusFailed)
}

// Pending counts participants that were never reached
func (r *Report) Pending() int {
	return r.Total - len(r.Outcomes)
}

func (r *Report) count(status Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}
