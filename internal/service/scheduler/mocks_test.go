package scheduler_test

import (
	"context"
	"io"
	"sync"

	"github.com/nbsynth/nbsynth/internal/alert"
	"github.com/nbsynth/nbsynth/internal/core"
	"github.com/nbsynth/nbsynth/internal/service/scheduler"
)

var (
	_ scheduler.Backend = (*mockBackend)(nil)
	_ alert.Alerter     = (*mockAlerter)(nil)
)

type invocation struct {
	Policy   string
	Schedule string
}

// mockBackend records invocations and returns the queued statuses in order.
// When statuses run out it returns status 0.
type mockBackend struct {
	mu          sync.Mutex
	statuses    []int
	running     map[string]*core.RunningJob
	invocations []invocation
}

func newMockBackend(statuses ...int) *mockBackend {
	return &mockBackend{statuses: statuses, running: make(map[string]*core.RunningJob)}
}

func (b *mockBackend) factory() scheduler.BackendFactory {
	return func(w io.Writer) scheduler.Backend {
		return b
	}
}

func (b *mockBackend) RunBackup(_ context.Context, policy, schedule string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.invocations = append(b.invocations, invocation{Policy: policy, Schedule: schedule})
	if len(b.statuses) == 0 {
		return 0, nil
	}
	status := b.statuses[0]
	b.statuses = b.statuses[1:]
	return status, nil
}

func (b *mockBackend) FindRunning(_ context.Context, policy, client string) (*core.RunningJob, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running[core.StateKey(policy, client)], nil
}

func (b *mockBackend) calls() []invocation {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]invocation(nil), b.invocations...)
}

type mockAlerter struct {
	mu     sync.Mutex
	alerts []alert.Alert
}

func (a *mockAlerter) Alert(_ context.Context, al alert.Alert) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, al)
	return nil
}

func (a *mockAlerter) sent() []alert.Alert {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]alert.Alert(nil), a.alerts...)
}
