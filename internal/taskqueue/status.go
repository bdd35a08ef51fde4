package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	apperrors "vmshift.io/vmshift/internal/pkg/errors"
)

// Progress is a point-in-time progress checkpoint.
type Progress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Status  string `json:"status"`
}

// TaskStatus is the read-only projection over one job.
type TaskStatus struct {
	TaskID     int64           `json:"task_id"`
	Status     string          `json:"status"`
	Ready      bool            `json:"ready"`
	Successful *bool           `json:"successful"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	Progress   *Progress       `json:"progress,omitempty"`
}

// JobDescriptor summarizes one queued or running job.
type JobDescriptor struct {
	ID      int64  `json:"id"`
	Kind    string `json:"kind"`
	Queue   string `json:"queue"`
	Attempt int    `json:"attempt"`
	State   string `json:"state"`
}

// ActiveJobs groups jobs by execution phase, each keyed by worker identity
// (running jobs) or queue name (not yet picked up).
type ActiveJobs struct {
	Active    map[string][]JobDescriptor `json:"active"`
	Scheduled map[string][]JobDescriptor `json:"scheduled"`
	Reserved  map[string][]JobDescriptor `json:"reserved"`
}

// QueueStats counts jobs per state for one queue.
type QueueStats struct {
	Available int `json:"available"`
	Running   int `json:"running"`
	Scheduled int `json:"scheduled"`
	Retryable int `json:"retryable"`
	Completed int `json:"completed"`
}

// WorkerReport describes the queue topology and per-queue statistics.
type WorkerReport struct {
	Workers []string              `json:"workers"`
	Stats   map[string]QueueStats `json:"stats"`
	Ping    map[string]string     `json:"ping"`
}

// GetStatus returns the merged status projection for one job: the River job
// row provides the state machine, the progress row provides checkpoint and
// result data.
func (q *Queue) GetStatus(ctx context.Context, jobID int64) (*TaskStatus, error) {
	job, err := q.river.JobGet(ctx, jobID)
	if err != nil {
		if errors.Is(err, rivertype.ErrNotFound) {
			return nil, fmt.Errorf("job %d: %w", jobID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("get job %d: %w", jobID, err)
	}

	status := &TaskStatus{
		TaskID: jobID,
		Status: mapJobState(job.State),
	}
	status.Ready = status.Status == StateSuccess || status.Status == StateFailure || status.Status == StateRevoked
	if status.Ready {
		ok := status.Status == StateSuccess
		status.Successful = &ok
	}
	if len(job.Errors) > 0 {
		status.Error = job.Errors[len(job.Errors)-1].Error
	}

	q.mergeProgressRow(ctx, status)
	return status, nil
}

// mergeProgressRow folds the result-store row into the projection, if present.
func (q *Queue) mergeProgressRow(ctx context.Context, status *TaskStatus) {
	var (
		progress Progress
		result   []byte
		errMsg   string
	)
	err := q.pool.QueryRow(ctx,
		`SELECT current, total, status, result, error FROM job_progress WHERE job_id = $1`,
		status.TaskID,
	).Scan(&progress.Current, &progress.Total, &progress.Status, &result, &errMsg)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			status.Error = firstNonEmpty(status.Error, fmt.Sprintf("read progress: %v", err))
		}
		return
	}

	if status.Status == StateProgress && progress.Status != "" {
		status.Progress = &progress
	}
	if status.Ready {
		if status.Successful != nil && *status.Successful {
			status.Result = result
		} else {
			status.Error = firstNonEmpty(errMsg, status.Error)
		}
	}
}

// ListActive projects running, scheduled, and reserved jobs across queues.
func (q *Queue) ListActive(ctx context.Context) (*ActiveJobs, error) {
	out := &ActiveJobs{
		Active:    map[string][]JobDescriptor{},
		Scheduled: map[string][]JobDescriptor{},
		Reserved:  map[string][]JobDescriptor{},
	}

	groups := []struct {
		states []rivertype.JobState
		dest   map[string][]JobDescriptor
		byWork bool
	}{
		{[]rivertype.JobState{rivertype.JobStateRunning}, out.Active, true},
		{[]rivertype.JobState{rivertype.JobStateScheduled, rivertype.JobStateRetryable}, out.Scheduled, false},
		{[]rivertype.JobState{rivertype.JobStateAvailable, rivertype.JobStatePending}, out.Reserved, false},
	}

	for _, group := range groups {
		res, err := q.river.JobList(ctx, river.NewJobListParams().
			States(group.states...).
			First(500),
		)
		if err != nil {
			return nil, fmt.Errorf("list jobs: %w", err)
		}
		for _, job := range res.Jobs {
			key := job.Queue
			if group.byWork {
				if worker := lastAttemptedBy(job); worker != "" {
					key = worker
				}
			}
			group.dest[key] = append(group.dest[key], JobDescriptor{
				ID:      job.ID,
				Kind:    job.Kind,
				Queue:   job.Queue,
				Attempt: job.Attempt,
				State:   string(job.State),
			})
		}
	}
	return out, nil
}

// WorkerStatus reports queue names, per-queue job statistics, and a queue
// reachability ping.
func (q *Queue) WorkerStatus(ctx context.Context) (*WorkerReport, error) {
	queues, err := q.river.QueueList(ctx, river.NewQueueListParams().First(50))
	if err != nil {
		return nil, fmt.Errorf("list queues: %w", err)
	}

	report := &WorkerReport{
		Workers: make([]string, 0, len(queues.Queues)),
		Stats:   make(map[string]QueueStats, len(queues.Queues)),
		Ping:    map[string]string{},
	}
	for _, queue := range queues.Queues {
		report.Workers = append(report.Workers, queue.Name)
		stats, err := q.queueStats(ctx, queue.Name)
		if err != nil {
			return nil, err
		}
		report.Stats[queue.Name] = stats
	}

	if err := q.Ping(ctx); err != nil {
		report.Ping["queue"] = err.Error()
	} else {
		report.Ping["queue"] = "pong"
	}
	return report, nil
}

func (q *Queue) queueStats(ctx context.Context, queueName string) (QueueStats, error) {
	res, err := q.river.JobList(ctx, river.NewJobListParams().
		Queues(queueName).
		First(1000),
	)
	if err != nil {
		return QueueStats{}, fmt.Errorf("list jobs for queue %s: %w", queueName, err)
	}

	var stats QueueStats
	for _, job := range res.Jobs {
		switch job.State {
		case rivertype.JobStateAvailable, rivertype.JobStatePending:
			stats.Available++
		case rivertype.JobStateRunning:
			stats.Running++
		case rivertype.JobStateScheduled:
			stats.Scheduled++
		case rivertype.JobStateRetryable:
			stats.Retryable++
		case rivertype.JobStateCompleted:
			stats.Completed++
		}
	}
	return stats, nil
}

func mapJobState(state rivertype.JobState) string {
	switch state {
	case rivertype.JobStateRunning:
		return StateProgress
	case rivertype.JobStateCompleted:
		return StateSuccess
	case rivertype.JobStateDiscarded:
		return StateFailure
	case rivertype.JobStateCancelled:
		return StateRevoked
	default:
		// available, pending, scheduled, retryable
		return StatePending
	}
}

func lastAttemptedBy(job *rivertype.JobRow) string {
	if len(job.AttemptedBy) == 0 {
		return ""
	}
	return job.AttemptedBy[len(job.AttemptedBy)-1]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
