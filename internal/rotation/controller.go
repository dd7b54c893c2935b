package rotation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nbsynth/nbsynth/internal/cmn/backoff"
	"github.com/nbsynth/nbsynth/internal/cmn/logger"
	"github.com/nbsynth/nbsynth/internal/cmn/logger/tag"
	"github.com/nbsynth/nbsynth/internal/core"
)

// DefaultSynthRetryInterval is the wait before retrying a failed synthetic full.
const DefaultSynthRetryInterval = 30 * time.Minute

// ControllerConfig holds the collaborators of a Controller.
type ControllerConfig struct {
	Invoker Invoker
	Store   StateStore

	// Clock returns the current time. Defaults to time.Now.
	Clock Clock
	// Location decides which weekday the retry window belongs to. Defaults to time.Local.
	Location *time.Location

	// RealRetry paces retries of real fulls. Defaults to immediate retries.
	RealRetry backoff.RetryPolicy
	// SynthRetry paces retries of synthetic fulls. Defaults to DefaultSynthRetryInterval.
	SynthRetry backoff.RetryPolicy
	// Wait blocks between attempts. Defaults to backoff.Wait.
	Wait backoff.WaitFunc

	// InvokeTimeout bounds each attempt. Zero means no limit.
	InvokeTimeout time.Duration
}

// Controller runs a backup and updates the policy state with its outcome.
// Scheduled attempts are retried until they succeed, the failure threshold is
// reached, or the scheduled weekday ends.
type Controller struct {
	cfg ControllerConfig
}

// NewController creates a Controller, filling unset fields with defaults.
func NewController(cfg ControllerConfig) *Controller {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.RealRetry == nil {
		cfg.RealRetry = backoff.NewConstantBackoffPolicy(0)
	}
	if cfg.SynthRetry == nil {
		cfg.SynthRetry = backoff.NewConstantBackoffPolicy(DefaultSynthRetryInterval)
	}
	if cfg.Wait == nil {
		cfg.Wait = backoff.Wait
	}
	return &Controller{cfg: cfg}
}

// Execute runs a backup of the given kind for p and records the result in st.
//
// Every failed scheduled attempt is persisted before the next one starts.
// A forced run is attempted once and its failure leaves st unchanged.
// When ctx is canceled the interrupted attempt is not recorded.
func (c *Controller) Execute(ctx context.Context, p *core.Policy, st *core.PolicyState, kind core.BackupKind, forced bool) (core.Outcome, error) {
	schedule := p.Schedule(kind)
	retry := c.cfg.RealRetry
	if kind == core.BackupSynthetic {
		retry = c.cfg.SynthRetry
	}

	begin := c.cfg.Clock()
	for attempt := 1; ; attempt++ {
		startedAt := c.cfg.Clock()
		logger.Info(ctx, "Starting full backup",
			tag.Kind(kind.String()),
			tag.Schedule(schedule),
			tag.Attempt(attempt),
		)

		err := c.invoke(ctx, p.PolicyName, schedule)
		if err == nil {
			st.RecordSuccess(kind, startedAt)
			if err := c.cfg.Store.Save(ctx, st); err != nil {
				return core.OutcomeSuccess, err
			}
			logger.Info(ctx, "Full backup completed",
				tag.Kind(kind.String()),
				tag.SynthsRemaining(st.SynthsRemaining),
			)
			return core.OutcomeSuccess, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			logger.Warn(ctx, "Backup interrupted", tag.Error(err))
			return core.OutcomeFailed, ctxErr
		}

		if forced {
			logger.Error(ctx, "Forced backup failed", tag.Kind(kind.String()), tag.Error(err))
			return core.OutcomeFailed, err
		}

		st.RecordFailure()
		if saveErr := c.cfg.Store.Save(ctx, st); saveErr != nil {
			return core.OutcomeFailed, errors.Join(err, saveErr)
		}
		logger.Warn(ctx, "Full backup failed",
			tag.Kind(kind.String()),
			tag.Attempt(attempt),
			tag.FailureCount(st.FailureCount),
			tag.Error(err),
		)

		if st.FailureCount >= core.FailureThreshold {
			return core.OutcomeFailed, fmt.Errorf("%w: %d consecutive failures, manual intervention required: %w",
				core.ErrFailureThreshold, st.FailureCount, err)
		}

		if c.cfg.Clock().In(c.cfg.Location).Weekday() != p.Weekday {
			return core.OutcomeFailed, fmt.Errorf("%w: %s full for %s/%s: %w",
				core.ErrWindowClosed, kind, p.PolicyName, p.ClientName, err)
		}

		interval, retryErr := retry.ComputeNextInterval(attempt, c.cfg.Clock().Sub(begin), err)
		if retryErr != nil {
			return core.OutcomeFailed, fmt.Errorf("%w: %w", retryErr, err)
		}
		if interval > 0 {
			logger.Info(ctx, "Waiting before retry", tag.Interval(interval))
		}
		if err := c.cfg.Wait(ctx, interval); err != nil {
			return core.OutcomeFailed, err
		}
	}
}

// invoke runs one attempt. Failures wrap core.ErrExecution or
// core.ErrInvocationTimeout.
func (c *Controller) invoke(ctx context.Context, policy, schedule string) error {
	attemptCtx := ctx
	if c.cfg.InvokeTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.cfg.InvokeTimeout)
		defer cancel()
	}

	status, err := c.cfg.Invoker.RunBackup(attemptCtx, policy, schedule)
	if err == nil && status == 0 {
		return nil
	}
	if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", core.ErrInvocationTimeout, c.cfg.InvokeTimeout)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrExecution, err)
	}
	return fmt.Errorf("%w: schedule %s exited with status %d", core.ErrExecution, schedule, status)
}
