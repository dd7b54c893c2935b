package rotation_test

import (
	"context"
	"sync"
	"time"

	"github.com/nbsynth/nbsynth/internal/core"
	"github.com/nbsynth/nbsynth/internal/rotation"
)

var (
	_ rotation.StateStore = (*mockStore)(nil)
	_ rotation.JobQuery   = (*mockQuery)(nil)
	_ rotation.Invoker    = (*mockInvoker)(nil)
)

// mockStore keeps states in memory and records every save.
type mockStore struct {
	mu      sync.Mutex
	states  map[string]*core.PolicyState
	saves   []*core.PolicyState
	loadErr error
	saveErr error
}

func newMockStore() *mockStore {
	return &mockStore{states: make(map[string]*core.PolicyState)}
}

func (s *mockStore) put(st *core.PolicyState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[core.StateKey(st.PolicyName, st.ClientName)] = st.Clone()
}

func (s *mockStore) Load(_ context.Context, p *core.Policy) (*core.PolicyState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	st, ok := s.states[p.StateKey()]
	if !ok {
		return core.NewPolicyState(p), nil
	}
	st = st.Clone()
	st.ApplyPolicy(p)
	return st, nil
}

func (s *mockStore) Save(_ context.Context, st *core.PolicyState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.states[core.StateKey(st.PolicyName, st.ClientName)] = st.Clone()
	s.saves = append(s.saves, st.Clone())
	return nil
}

func (s *mockStore) saved() []*core.PolicyState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*core.PolicyState(nil), s.saves...)
}

// mockQuery returns a fixed job or error.
type mockQuery struct {
	mu    sync.Mutex
	job   *core.RunningJob
	err   error
	calls int
}

func (q *mockQuery) FindRunning(_ context.Context, _, _ string) (*core.RunningJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls++
	return q.job, q.err
}

func (q *mockQuery) callCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.calls
}

type invocation struct {
	Policy   string
	Schedule string
}

// mockInvoker returns statuses in order; the last one repeats.
type mockInvoker struct {
	mu       sync.Mutex
	statuses []int
	err      error
	calls    []invocation
	// run, when set, replaces the canned result.
	run func(ctx context.Context) (int, error)
	// onCall runs before each invocation returns, e.g. to advance a clock.
	onCall func()
}

func (m *mockInvoker) RunBackup(ctx context.Context, policy, schedule string) (int, error) {
	m.mu.Lock()
	m.calls = append(m.calls, invocation{Policy: policy, Schedule: schedule})
	n := len(m.calls)
	run, onCall := m.run, m.onCall
	m.mu.Unlock()

	if onCall != nil {
		onCall()
	}
	if run != nil {
		return run(ctx)
	}
	if m.err != nil {
		return 0, m.err
	}
	if len(m.statuses) == 0 {
		return 0, nil
	}
	if n > len(m.statuses) {
		return m.statuses[len(m.statuses)-1], nil
	}
	return m.statuses[n-1], nil
}

func (m *mockInvoker) invocations() []invocation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]invocation(nil), m.calls...)
}

// fakeClock is a settable clock. Its Wait advances time instead of sleeping.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waits = append(c.waits, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.waits...)
}
