package rotation

import (
	"context"
	"time"

	"github.com/nbsynth/nbsynth/internal/cmn/logger"
	"github.com/nbsynth/nbsynth/internal/cmn/logger/tag"
	"github.com/nbsynth/nbsynth/internal/core"
)

// Evaluator maps a policy state and the current time to a scheduling decision.
type Evaluator struct {
	guard    *Guard
	store    StateStore
	location *time.Location
}

// NewEvaluator creates an Evaluator. The location decides which weekday
// "now" falls on; nil means time.Local.
func NewEvaluator(guard *Guard, store StateStore, location *time.Location) *Evaluator {
	if location == nil {
		location = time.Local
	}
	return &Evaluator{guard: guard, store: store, location: location}
}

// Evaluate returns the decision for st at now. Checks are applied in order:
//
//	set remaining, force, disabled, not due, failure threshold,
//	wrong weekday, already running, real or synthetic.
//
// A SetRemaining override persists st before returning ActionNoop.
func (e *Evaluator) Evaluate(ctx context.Context, p *core.Policy, st *core.PolicyState, now time.Time, ov Override) (core.Decision, error) {
	if err := ov.Validate(); err != nil {
		return core.Decision{}, err
	}

	switch ov.kind {
	case overrideSetRemaining:
		st.SynthsRemaining = ov.remaining
		if err := e.store.Save(ctx, st); err != nil {
			return core.Decision{}, err
		}
		logger.Info(ctx, "Updated remaining synthetic fulls", tag.SynthsRemaining(st.SynthsRemaining))
		return core.Decision{Action: core.ActionNoop}, nil

	case overrideForce:
		if d, err := e.checkRunning(ctx, st); err != nil || d.Action != core.ActionNoop {
			return d, err
		}
		return core.Decision{Action: core.ActionRun, Kind: ov.backup, Forced: true}, nil
	}

	if !p.Enabled {
		return core.Decision{Action: core.ActionSkipDisabled}, nil
	}

	// Exactly one window after the last full is already due.
	if lastFull := st.LastFull(); !lastFull.IsZero() && now.Sub(lastFull) < st.Frequency.Window() {
		return core.Decision{Action: core.ActionSkipNotDue}, nil
	}

	if st.FailureCount >= core.FailureThreshold {
		return core.Decision{Action: core.ActionSkipFailureThreshold}, nil
	}

	if now.In(e.location).Weekday() != st.Weekday {
		return core.Decision{Action: core.ActionSkipWrongWeekday}, nil
	}

	if d, err := e.checkRunning(ctx, st); err != nil || d.Action != core.ActionNoop {
		return d, err
	}

	if st.LastRealFull.IsZero() || st.SynthsRemaining == 0 {
		return core.Decision{Action: core.ActionRun, Kind: core.BackupReal}, nil
	}
	return core.Decision{Action: core.ActionRun, Kind: core.BackupSynthetic}, nil
}

// checkRunning returns ActionSkipAlreadyRunning when the guard finds a job
// and ActionNoop otherwise.
func (e *Evaluator) checkRunning(ctx context.Context, st *core.PolicyState) (core.Decision, error) {
	job, err := e.guard.IsRunning(ctx, st.PolicyName, st.ClientName)
	if err != nil {
		return core.Decision{}, err
	}
	if job != nil {
		return core.Decision{Action: core.ActionSkipAlreadyRunning, Job: job}, nil
	}
	return core.Decision{Action: core.ActionNoop}, nil
}
