package scheduler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/nbsynth/nbsynth/internal/cmn/dirlock"
	"github.com/nbsynth/nbsynth/internal/cmn/logger"
	"github.com/nbsynth/nbsynth/internal/cmn/logger/tag"
	"github.com/nbsynth/nbsynth/internal/core"
	"github.com/nbsynth/nbsynth/internal/rotation"
	"github.com/robfig/cron/v3"
)

// lockHeartbeatInterval keeps the scheduler lock well inside the default
// stale threshold of dirlock.
const lockHeartbeatInterval = 10 * time.Second

var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseSchedule parses a standard five-field cron expression or a
// descriptor such as "@hourly".
func ParseSchedule(expr string) (cron.Schedule, error) {
	s, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid scheduler.cron %q: %w", core.ErrConfig, expr, err)
	}
	return s, nil
}

// Daemon runs a scheduling pass over all configured policy files every time
// its cron schedule fires. A pass that is still running when the next tick
// is due delays that tick.
type Daemon struct {
	coord    *Coordinator
	patterns []string
	schedule cron.Schedule
	location *time.Location
	lock     dirlock.DirLock
	clock    rotation.Clock
	running  atomic.Bool

	// passes counts finished scheduling passes.
	passes atomic.Int64
}

// NewDaemon creates a Daemon evaluating the policy files matched by
// patterns on the configured cron schedule.
func NewDaemon(coord *Coordinator, patterns []string) (*Daemon, error) {
	schedule, err := ParseSchedule(coord.cfg.Scheduler.Cron)
	if err != nil {
		return nil, err
	}
	loc := coord.cfg.Core.Location
	if loc == nil {
		loc = time.Local
	}
	clock := coord.clock
	if clock == nil {
		clock = time.Now
	}
	return &Daemon{
		coord:    coord,
		patterns: patterns,
		schedule: schedule,
		location: loc,
		lock:     dirlock.New(filepath.Join(coord.cfg.Paths.StateDir, "locks", "scheduler"), nil),
		clock:    clock,
	}, nil
}

// Start blocks until ctx is canceled. Only one daemon can run against a
// state directory at a time; Start waits for the lock of a previous one.
func (d *Daemon) Start(ctx context.Context) error {
	logger.Info(ctx, "Waiting to acquire scheduler lock")
	if err := d.lock.Lock(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("failed to acquire scheduler lock: %w", err)
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			logger.Error(ctx, "Failed to release scheduler lock", tag.Error(err))
		}
	}()
	logger.Info(ctx, "Acquired scheduler lock")

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go heartbeat(hbCtx, d.lock)

	d.running.Store(true)
	defer d.running.Store(false)

	d.cronLoop(ctx)
	logger.Info(ctx, "Scheduler stopped")
	return nil
}

// IsRunning reports whether the daemon loop is active.
func (d *Daemon) IsRunning() bool {
	return d.running.Load()
}

// Passes returns the number of finished scheduling passes.
func (d *Daemon) Passes() int64 {
	return d.passes.Load()
}

// NextTick returns the first activation of the cron schedule after now.
func (d *Daemon) NextTick(now time.Time) time.Time {
	return d.schedule.Next(now.In(d.location))
}

func (d *Daemon) cronLoop(ctx context.Context) {
	next := d.NextTick(d.clock())
	logger.Info(ctx, "Scheduler started", tag.Time("next", next))

	timer := time.NewTimer(next.Sub(d.clock()))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			d.runPass(ctx)

			next = d.NextTick(d.clock())
			logger.Debug(ctx, "Next scheduling pass", tag.Time("next", next))
			timer.Reset(next.Sub(d.clock()))
		}
	}
}

func (d *Daemon) runPass(ctx context.Context) {
	defer d.passes.Add(1)

	summary, err := d.coord.Run(ctx, d.patterns, rotation.NoOverride)
	if err != nil {
		logger.Error(ctx, "Scheduling pass failed", tag.Error(err))
		return
	}
	if code := summary.ExitCode(); code != core.ExitOK {
		logger.Error(ctx, "Scheduling pass finished with errors",
			tag.RunID(summary.RunID),
			tag.ExitCode(code),
			tag.Error(summary.Err()),
		)
	}
}

func heartbeat(ctx context.Context, lock dirlock.DirLock) {
	ticker := time.NewTicker(lockHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := lock.Heartbeat(ctx); err != nil {
				logger.Error(ctx, "Failed to send heartbeat for scheduler lock", tag.Error(err))
			}
		}
	}
}
