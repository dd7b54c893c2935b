package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/nbsynth/nbsynth/internal/cmn/logger"
	"github.com/nbsynth/nbsynth/internal/core"
	"github.com/nbsynth/nbsynth/internal/service/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchedule(t *testing.T) {
	t.Parallel()

	s, err := scheduler.ParseSchedule("0 * * * *")
	require.NoError(t, err)
	next := s.Next(time.Date(2026, 10, 17, 10, 15, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 10, 17, 11, 0, 0, 0, time.UTC), next)

	_, err = scheduler.ParseSchedule("@hourly")
	assert.NoError(t, err)

	_, err = scheduler.ParseSchedule("every hour")
	assert.ErrorIs(t, err, core.ErrConfig)
}

func TestNewDaemon_InvalidCron(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.cfg.Scheduler.Cron = "61 * * * *"
	_, err := scheduler.NewDaemon(f.coordinator(), f.pattern())
	assert.ErrorIs(t, err, core.ErrConfig)
}

func TestDaemon_Start(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.cfg.Scheduler.Cron = "@every 1s"
	f.writePolicy("web.yaml", webPolicy)
	c := scheduler.NewCoordinator(f.cfg,
		scheduler.WithBackend(f.backend.factory()),
		scheduler.WithAlerter(f.alerter),
		scheduler.WithWait(func(context.Context, time.Duration) error { return nil }),
		scheduler.WithLoggerOptions(logger.WithQuiet()),
	)
	d, err := scheduler.NewDaemon(c, f.pattern())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- d.Start(ctx)
	}()

	require.Eventually(t, func() bool { return d.Passes() >= 1 }, 5*time.Second, 50*time.Millisecond)
	assert.True(t, d.IsRunning())
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
	assert.False(t, d.IsRunning())
}
