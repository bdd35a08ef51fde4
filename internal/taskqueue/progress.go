package taskqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"vmshift.io/vmshift/internal/pkg/logger"
)

// ProgressReporter is the narrow interface workers use to publish progress.
// Reports are best-effort: persistence of domain state is authoritative and
// lives elsewhere.
type ProgressReporter interface {
	ReportProgress(ctx context.Context, jobID int64, current, total int, status string)
}

var _ ProgressReporter = (*Queue)(nil)

// ReportProgress publishes a progress checkpoint for a job. Fire-and-forget:
// the write runs on the reports pool and failures are logged, never
// propagated to the running job.
func (q *Queue) ReportProgress(ctx context.Context, jobID int64, current, total int, status string) {
	write := func(ctx context.Context) {
		if err := q.writeProgress(ctx, jobID, current, total, status); err != nil {
			logger.Warn("failed to report job progress",
				zap.Int64("job_id", jobID),
				zap.Int("current", current),
				zap.Error(err),
			)
		}
	}

	if q.pools == nil {
		write(ctx)
		return
	}
	if err := q.pools.SubmitDetached("reports", write); err != nil {
		logger.Warn("failed to submit progress report",
			zap.Int64("job_id", jobID),
			zap.Error(err),
		)
	}
}

func (q *Queue) writeProgress(ctx context.Context, jobID int64, current, total int, status string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := q.pool.Exec(ctx, `
		INSERT INTO job_progress (job_id, current, total, status, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (job_id) DO UPDATE
		SET current = EXCLUDED.current,
		    total = EXCLUDED.total,
		    status = EXCLUDED.status,
		    updated_at = now()`,
		jobID, current, total, status,
	)
	return err
}

// RecordResult stores a job's terminal success payload in the result store.
func (q *Queue) RecordResult(ctx context.Context, jobID int64, result any) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result for job %d: %w", jobID, err)
	}
	_, err = q.pool.Exec(ctx, `
		INSERT INTO job_progress (job_id, current, total, status, result, updated_at)
		VALUES ($1, 100, 100, $2, $3, now())
		ON CONFLICT (job_id) DO UPDATE
		SET current = 100,
		    status = EXCLUDED.status,
		    result = EXCLUDED.result,
		    updated_at = now()`,
		jobID, StateSuccess, payload,
	)
	if err != nil {
		return fmt.Errorf("record result for job %d: %w", jobID, err)
	}
	return nil
}

// RecordError stores a job's terminal error description. Best-effort: River
// keeps its own attempt errors, this row only feeds the status projection.
func (q *Queue) RecordError(ctx context.Context, jobID int64, message string) {
	if _, err := q.pool.Exec(ctx, `
		INSERT INTO job_progress (job_id, status, error, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (job_id) DO UPDATE
		SET status = EXCLUDED.status,
		    error = EXCLUDED.error,
		    updated_at = now()`,
		jobID, StateFailure, message,
	); err != nil {
		logger.Warn("failed to record job error",
			zap.Int64("job_id", jobID),
			zap.Error(err),
		)
	}
}

// DeleteStaleProgress removes progress rows older than the retention window.
// Called by the periodic cleanup job; mirrors River's own completed-job
// retention for the result-store half.
func (q *Queue) DeleteStaleProgress(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := q.pool.Exec(ctx,
		`DELETE FROM job_progress WHERE updated_at < now() - $1::interval`,
		fmt.Sprintf("%d seconds", int(olderThan.Seconds())),
	)
	if err != nil {
		return 0, fmt.Errorf("delete stale progress rows: %w", err)
	}
	return tag.RowsAffected(), nil
}
