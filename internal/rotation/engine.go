package rotation

import (
	"context"
	"fmt"
	"time"

	"github.com/nbsynth/nbsynth/internal/cmn/backoff"
	"github.com/nbsynth/nbsynth/internal/cmn/logger"
	"github.com/nbsynth/nbsynth/internal/cmn/logger/tag"
	"github.com/nbsynth/nbsynth/internal/core"
)

// EngineConfig holds the settings and collaborators of an Engine.
type EngineConfig struct {
	Store   StateStore
	Query   JobQuery
	Invoker Invoker

	Clock    Clock
	Location *time.Location
	Wait     backoff.WaitFunc

	QueryTimeout       time.Duration
	InvokeTimeout      time.Duration
	SynthRetryInterval time.Duration
}

// Engine runs one scheduling pass for a policy: load state, decide, execute.
type Engine struct {
	store      StateStore
	clock      Clock
	evaluator  *Evaluator
	controller *Controller
}

// NewEngine creates an Engine.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	guard := NewGuard(cfg.Query, cfg.QueryTimeout)
	return &Engine{
		store:     cfg.Store,
		clock:     cfg.Clock,
		evaluator: NewEvaluator(guard, cfg.Store, cfg.Location),
		controller: NewController(ControllerConfig{
			Invoker:       cfg.Invoker,
			Store:         cfg.Store,
			Clock:         cfg.Clock,
			Location:      cfg.Location,
			SynthRetry:    backoff.NewConstantBackoffPolicy(cfg.SynthRetryInterval),
			Wait:          cfg.Wait,
			InvokeTimeout: cfg.InvokeTimeout,
		}),
	}
}

// Result describes a finished scheduling pass.
type Result struct {
	Policy   *core.Policy
	State    *core.PolicyState
	Decision core.Decision
	// Outcome is only meaningful when Executed is true.
	Outcome  core.Outcome
	Executed bool
}

// Run performs one scheduling pass. Skips that need an operator
// (already running, failure threshold) are returned as errors so the caller
// can alert on them; core.ExitCode maps them to a zero exit status.
func (e *Engine) Run(ctx context.Context, p *core.Policy, ov Override) (*Result, error) {
	st, err := e.store.Load(ctx, p)
	if err != nil {
		return nil, err
	}
	res := &Result{Policy: p, State: st}

	d, err := e.evaluator.Evaluate(ctx, p, st, e.clock(), ov)
	if err != nil {
		return res, err
	}
	res.Decision = d
	logger.Info(ctx, "Evaluated policy",
		tag.Action(d.String()),
		tag.FailureCount(st.FailureCount),
		tag.SynthsRemaining(st.SynthsRemaining),
	)

	switch d.Action {
	case core.ActionRun:
		res.Executed = true
		res.Outcome, err = e.controller.Execute(ctx, p, st, d.Kind, d.Forced)
		return res, err
	case core.ActionSkipAlreadyRunning:
		return res, fmt.Errorf("%w for %s/%s: %s", core.ErrAlreadyRunning, p.PolicyName, p.ClientName, d.Job)
	case core.ActionSkipFailureThreshold:
		return res, fmt.Errorf("%w: %s/%s has failed %d times, manual intervention required",
			core.ErrFailureThreshold, p.PolicyName, p.ClientName, st.FailureCount)
	default:
		return res, nil
	}
}

// SetRemaining overwrites the remaining synthetic count of p.
func (e *Engine) SetRemaining(ctx context.Context, p *core.Policy, n int) (*Result, error) {
	return e.Run(ctx, p, SetRemaining(n))
}

// ForceRun runs a single backup of the given kind for p, bypassing the
// scheduling checks except the concurrency guard.
func (e *Engine) ForceRun(ctx context.Context, p *core.Policy, kind core.BackupKind) (*Result, error) {
	return e.Run(ctx, p, ForceRun(kind))
}

// Report loads the state of p without changing anything.
func (e *Engine) Report(ctx context.Context, p *core.Policy) (*core.PolicyState, error) {
	return e.store.Load(ctx, p)
}
