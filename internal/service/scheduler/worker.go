package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/nbsynth/nbsynth/internal/alert"
	"github.com/nbsynth/nbsynth/internal/cmn/fileutil"
	"github.com/nbsynth/nbsynth/internal/cmn/logger"
	"github.com/nbsynth/nbsynth/internal/cmn/logger/tag"
	"github.com/nbsynth/nbsynth/internal/core"
	"github.com/nbsynth/nbsynth/internal/rotation"
)

// LockFile returns the file locked while a worker owns the state of p.
func LockFile(stateDir string, p *core.Policy) string {
	return filepath.Join(stateDir, "locks", fileutil.SafeName(p.StateKey())+".lock")
}

// runWorker runs the rotation engine for a single policy. It owns the
// policy's state record for the duration of the call.
func (c *Coordinator) runWorker(ctx context.Context, runID string, p *core.Policy, ov rotation.Override, masterLog io.Writer) (*rotation.Result, error) {
	logFile, err := fileutil.OpenOrCreateFile(c.policyLogFile(p))
	if err != nil {
		logger.Error(ctx, "Failed to open policy log", tag.PolicyFile(p.File), tag.Error(err))
		return nil, err
	}
	defer closeFile(ctx, logFile)

	lg := logger.NewLogger(append(c.logOpts, logger.WithWriter(logFile), logger.WithWriter(masterLog))...)
	ctx = logger.WithLogger(ctx, lg.With(
		tag.RunID(runID),
		tag.Policy(p.PolicyName),
		tag.Client(p.ClientName),
		tag.PolicyFile(p.File),
	))

	res, err := c.runLocked(ctx, p, ov, logFile)
	if err != nil {
		c.reportError(ctx, p, err)
	}
	return res, err
}

func (c *Coordinator) runLocked(ctx context.Context, p *core.Policy, ov rotation.Override, out io.Writer) (*rotation.Result, error) {
	lockFile := LockFile(c.cfg.Paths.StateDir, p)
	if err := os.MkdirAll(filepath.Dir(lockFile), 0o750); err != nil {
		return nil, fmt.Errorf("%w: failed to create lock directory: %w", core.ErrPersistence, err)
	}

	// The lock is released by the kernel if the process dies.
	lock := flock.New(lockFile)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to lock state of %s/%s: %w", core.ErrPersistence, p.PolicyName, p.ClientName, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w for %s/%s: another nbsynth worker owns the state", core.ErrAlreadyRunning, p.PolicyName, p.ClientName)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn(ctx, "Failed to release state lock", tag.Error(err))
		}
	}()

	backend := c.newBackend(out)
	engine := rotation.NewEngine(rotation.EngineConfig{
		Store:              c.store,
		Query:              backend,
		Invoker:            backend,
		Clock:              c.clock,
		Location:           c.cfg.Core.Location,
		Wait:               c.wait,
		QueryTimeout:       c.cfg.NetBackup.QueryTimeout,
		InvokeTimeout:      c.cfg.NetBackup.InvokeTimeout,
		SynthRetryInterval: c.cfg.Scheduler.SynthRetryInterval,
	})
	return engine.Run(ctx, p, ov)
}

// reportError logs a worker error and alerts the operator. Interrupted runs
// are only logged.
func (c *Coordinator) reportError(ctx context.Context, p *core.Policy, err error) {
	if errors.Is(err, context.Canceled) {
		logger.Warn(ctx, "Scheduling pass interrupted", tag.Error(err))
		return
	}

	logger.Error(ctx, "Scheduling pass failed", tag.Error(err), tag.ExitCode(core.ExitCode(err)))
	c.sendAlert(ctx, alert.Alert{
		Policy:     p.PolicyName,
		Client:     p.ClientName,
		PolicyFile: p.File,
		Message:    alertMessage(err),
		Err:        err,
	})
}

func alertMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrAlreadyRunning):
		return "backup skipped, a job is already running"
	case errors.Is(err, core.ErrFailureThreshold):
		return "backups halted, manual intervention required"
	case errors.Is(err, core.ErrWindowClosed):
		return "full backup failed and cannot be retried today"
	case errors.Is(err, core.ErrGuardQuery):
		return "unable to query running jobs"
	case errors.Is(err, core.ErrExecution), errors.Is(err, core.ErrInvocationTimeout):
		return "full backup failed"
	case errors.Is(err, core.ErrPersistence):
		return "unable to save rotation state"
	case errors.Is(err, core.ErrCorruptState):
		return "rotation state is corrupt"
	case errors.Is(err, core.ErrConfig):
		return "invalid configuration"
	default:
		return "scheduling pass failed"
	}
}
