package taskqueue

import (
	"time"

	"github.com/riverqueue/river/rivertype"
)

// FixedRetryPolicy retries failed jobs after a constant delay instead of the
// default exponential backoff. Migration and discovery work talks to external
// systems that recover on their own schedule, so a short fixed delay keeps
// retries predictable.
type FixedRetryPolicy struct {
	Delay time.Duration
}

func (p *FixedRetryPolicy) NextRetry(job *rivertype.JobRow) time.Time {
	delay := p.Delay
	if delay <= 0 {
		delay = 60 * time.Second
	}
	return time.Now().Add(delay)
}
