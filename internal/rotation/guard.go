package rotation

import (
	"context"
	"fmt"
	"time"

	"github.com/nbsynth/nbsynth/internal/cmn/logger"
	"github.com/nbsynth/nbsynth/internal/cmn/logger/tag"
	"github.com/nbsynth/nbsynth/internal/core"
)

// Guard prevents a backup from starting while another job for the same
// policy/client is queued, active or requeued.
type Guard struct {
	query   JobQuery
	timeout time.Duration
}

// NewGuard creates a Guard. A positive timeout bounds each query.
func NewGuard(query JobQuery, timeout time.Duration) *Guard {
	return &Guard{query: query, timeout: timeout}
}

// IsRunning returns the in-flight job for the policy/client pair, or nil.
// A failed query returns an error wrapping core.ErrGuardQuery and is never
// reported as "not running".
func (g *Guard) IsRunning(ctx context.Context, policy, client string) (*core.RunningJob, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	job, err := g.query.FindRunning(ctx, policy, client)
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %w", core.ErrGuardQuery, policy, client, err)
	}
	if job == nil {
		return nil, nil
	}

	switch job.State {
	case core.JobQueued, core.JobActive, core.JobRequeued:
		logger.Debug(ctx, "Found in-flight job",
			tag.JobID(job.ID),
			tag.Status(string(job.State)),
			tag.Schedule(job.Schedule),
		)
		return job, nil
	default:
		return nil, nil
	}
}
