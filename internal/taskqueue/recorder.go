package taskqueue

import (
	"context"
	"sync"
)

// Checkpoint is one recorded progress report.
type Checkpoint struct {
	JobID   int64
	Current int
	Total   int
	Status  string
}

// Recorder is an in-memory ProgressReporter for tests and dry runs. Reports
// are stored synchronously in order of arrival.
type Recorder struct {
	mu          sync.Mutex
	checkpoints []Checkpoint
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) ReportProgress(_ context.Context, jobID int64, current, total int, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkpoints = append(r.checkpoints, Checkpoint{
		JobID:   jobID,
		Current: current,
		Total:   total,
		Status:  status,
	})
}

// Checkpoints returns a copy of all recorded reports.
func (r *Recorder) Checkpoints() []Checkpoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Checkpoint, len(r.checkpoints))
	copy(out, r.checkpoints)
	return out
}

// Statuses returns the status strings of all reports, in order.
func (r *Recorder) Statuses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.checkpoints))
	for i, cp := range r.checkpoints {
		out[i] = cp.Status
	}
	return out
}
