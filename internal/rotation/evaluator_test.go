package rotation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nbsynth/nbsynth/internal/core"
	"github.com/nbsynth/nbsynth/internal/rotation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const day = 24 * time.Hour

// saturday is a scheduled weekday for testPolicy.
var saturday = time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)

func testPolicy() *core.Policy {
	return &core.Policy{
		Name:             "web01",
		PolicyName:       "WEB-FS",
		ClientName:       "web01",
		Enabled:          true,
		Frequency:        core.FrequencyWeekly,
		Weekday:          time.Saturday,
		SynthsBeforeReal: 3,
		RealSchedule:     core.DefaultRealSchedule,
		SynthSchedule:    core.DefaultSynthSchedule,
	}
}

type evalFixture struct {
	store *mockStore
	query *mockQuery
	eval  *rotation.Evaluator
}

func newEvalFixture() *evalFixture {
	f := &evalFixture{store: newMockStore(), query: &mockQuery{}}
	f.eval = rotation.NewEvaluator(rotation.NewGuard(f.query, 0), f.store, time.UTC)
	return f
}

func TestEvaluate_Rotation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(st *core.PolicyState)
		wantKind core.BackupKind
	}{
		{
			name:     "NeverRealWithNoSynthsRemaining",
			mutate:   func(_ *core.PolicyState) {},
			wantKind: core.BackupReal,
		},
		{
			name: "NeverRealIgnoresSynthsRemaining",
			mutate: func(st *core.PolicyState) {
				st.SynthsRemaining = 5
			},
			wantKind: core.BackupReal,
		},
		{
			name: "NeverRealWithOldSynthetic",
			mutate: func(st *core.PolicyState) {
				st.SynthsRemaining = 2
				st.LastSynthFull = saturday.Add(-14 * day)
			},
			wantKind: core.BackupReal,
		},
		{
			name: "RotationExhausted",
			mutate: func(st *core.PolicyState) {
				st.LastRealFull = saturday.Add(-28 * day)
				st.LastSynthFull = saturday.Add(-7 * day)
				st.SynthsRemaining = 0
			},
			wantKind: core.BackupReal,
		},
		{
			name: "SyntheticDue",
			mutate: func(st *core.PolicyState) {
				st.LastRealFull = saturday.Add(-7 * day)
				st.SynthsRemaining = 3
			},
			wantKind: core.BackupSynthetic,
		},
		{
			name: "FailuresBelowThreshold",
			mutate: func(st *core.PolicyState) {
				st.LastRealFull = saturday.Add(-14 * day)
				st.SynthsRemaining = 1
				st.FailureCount = core.FailureThreshold - 1
			},
			wantKind: core.BackupSynthetic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newEvalFixture()
			p := testPolicy()
			st := core.NewPolicyState(p)
			tt.mutate(st)

			d, err := f.eval.Evaluate(context.Background(), p, st, saturday, rotation.NoOverride)
			require.NoError(t, err)
			assert.Equal(t, core.ActionRun, d.Action)
			assert.Equal(t, tt.wantKind, d.Kind)
			assert.False(t, d.Forced)
			assert.Equal(t, 1, f.query.callCount())
			assert.Empty(t, f.store.saved())
		})
	}
}

func TestEvaluate_FrequencyWindow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		frequency core.Frequency
		since     time.Duration
		want      core.Action
	}{
		{name: "WeeklySixDays", frequency: core.FrequencyWeekly, since: 6 * day, want: core.ActionSkipNotDue},
		{name: "WeeklyJustInsideSlack", frequency: core.FrequencyWeekly, since: 6*day + 23*time.Hour - time.Second, want: core.ActionSkipNotDue},
		{name: "WeeklySixDaysTwentyThreeHours", frequency: core.FrequencyWeekly, since: 6*day + 23*time.Hour, want: core.ActionRun},
		{name: "WeeklySevenDays", frequency: core.FrequencyWeekly, since: 7 * day, want: core.ActionRun},
		{name: "MonthlyTwentySevenDays", frequency: core.FrequencyMonthly, since: 27 * day, want: core.ActionSkipNotDue},
		{name: "MonthlyTwentySevenDaysTwentyThreeHours", frequency: core.FrequencyMonthly, since: 27*day + 23*time.Hour, want: core.ActionRun},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newEvalFixture()
			p := testPolicy()
			p.Frequency = tt.frequency
			st := core.NewPolicyState(p)
			st.LastRealFull = saturday.Add(-tt.since)
			st.SynthsRemaining = 1

			d, err := f.eval.Evaluate(context.Background(), p, st, saturday, rotation.NoOverride)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Action)
		})
	}

	t.Run("SyntheticCountsAsLastFull", func(t *testing.T) {
		t.Parallel()
		f := newEvalFixture()
		p := testPolicy()
		st := core.NewPolicyState(p)
		st.LastRealFull = saturday.Add(-21 * day)
		st.LastSynthFull = saturday.Add(-2 * day)
		st.SynthsRemaining = 1

		d, err := f.eval.Evaluate(context.Background(), p, st, saturday, rotation.NoOverride)
		require.NoError(t, err)
		assert.Equal(t, core.ActionSkipNotDue, d.Action)
	})
}

func TestEvaluate_Skips(t *testing.T) {
	t.Parallel()

	t.Run("FailureThreshold", func(t *testing.T) {
		t.Parallel()
		f := newEvalFixture()
		p := testPolicy()
		st := core.NewPolicyState(p)
		st.FailureCount = core.FailureThreshold

		d, err := f.eval.Evaluate(context.Background(), p, st, saturday, rotation.NoOverride)
		require.NoError(t, err)
		assert.Equal(t, core.ActionSkipFailureThreshold, d.Action)
		assert.Zero(t, f.query.callCount())
	})

	t.Run("WrongWeekday", func(t *testing.T) {
		t.Parallel()
		f := newEvalFixture()
		p := testPolicy()
		st := core.NewPolicyState(p)

		d, err := f.eval.Evaluate(context.Background(), p, st, saturday.Add(day), rotation.NoOverride)
		require.NoError(t, err)
		assert.Equal(t, core.ActionSkipWrongWeekday, d.Action)
		assert.Zero(t, f.query.callCount())
	})

	t.Run("WeekdayUsesLocation", func(t *testing.T) {
		t.Parallel()
		query := &mockQuery{}
		est := time.FixedZone("EST", -5*3600)
		eval := rotation.NewEvaluator(rotation.NewGuard(query, 0), newMockStore(), est)
		p := testPolicy()

		// 02:00 UTC on Saturday is still Friday evening at UTC-5.
		now := time.Date(2026, 10, 17, 2, 0, 0, 0, time.UTC)
		d, err := eval.Evaluate(context.Background(), p, core.NewPolicyState(p), now, rotation.NoOverride)
		require.NoError(t, err)
		assert.Equal(t, core.ActionSkipWrongWeekday, d.Action)
	})

	t.Run("Disabled", func(t *testing.T) {
		t.Parallel()
		f := newEvalFixture()
		p := testPolicy()
		p.Enabled = false

		d, err := f.eval.Evaluate(context.Background(), p, core.NewPolicyState(p), saturday, rotation.NoOverride)
		require.NoError(t, err)
		assert.Equal(t, core.ActionSkipDisabled, d.Action)
		assert.True(t, d.Action.IsSkip())
	})

	t.Run("AlreadyRunning", func(t *testing.T) {
		t.Parallel()
		f := newEvalFixture()
		f.query.job = &core.RunningJob{ID: "4242", State: core.JobActive, Schedule: "SYNTH-FULL"}
		p := testPolicy()

		d, err := f.eval.Evaluate(context.Background(), p, core.NewPolicyState(p), saturday, rotation.NoOverride)
		require.NoError(t, err)
		assert.Equal(t, core.ActionSkipAlreadyRunning, d.Action)
		require.NotNil(t, d.Job)
		assert.Equal(t, "4242", d.Job.ID)
	})
}

func TestEvaluate_Guard(t *testing.T) {
	t.Parallel()

	t.Run("MatchingStates", func(t *testing.T) {
		t.Parallel()
		for _, state := range []core.JobState{core.JobQueued, core.JobActive, core.JobRequeued} {
			f := newEvalFixture()
			f.query.job = &core.RunningJob{ID: "1", State: state}
			p := testPolicy()

			d, err := f.eval.Evaluate(context.Background(), p, core.NewPolicyState(p), saturday, rotation.NoOverride)
			require.NoError(t, err)
			assert.Equal(t, core.ActionSkipAlreadyRunning, d.Action, "state %s", state)
		}
	})

	t.Run("OtherStatesIgnored", func(t *testing.T) {
		t.Parallel()
		f := newEvalFixture()
		f.query.job = &core.RunningJob{ID: "1", State: core.JobState("done")}
		p := testPolicy()

		d, err := f.eval.Evaluate(context.Background(), p, core.NewPolicyState(p), saturday, rotation.NoOverride)
		require.NoError(t, err)
		assert.Equal(t, core.ActionRun, d.Action)
	})

	t.Run("QueryErrorIsFatal", func(t *testing.T) {
		t.Parallel()
		f := newEvalFixture()
		f.query.err = errors.New("bpdbjobs: exit status 25")
		p := testPolicy()

		d, err := f.eval.Evaluate(context.Background(), p, core.NewPolicyState(p), saturday, rotation.NoOverride)
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrGuardQuery)
		assert.NotEqual(t, core.ActionRun, d.Action)
	})

	t.Run("ActiveJobWinsOverFailureAndWeekday", func(t *testing.T) {
		t.Parallel()
		f := newEvalFixture()
		f.query.job = &core.RunningJob{ID: "7", State: core.JobActive}
		p := testPolicy()
		st := core.NewPolicyState(p)
		st.FailureCount = 5

		d, err := f.eval.Evaluate(context.Background(), p, st, saturday.Add(2*day), rotation.ForceRun(core.BackupReal))
		require.NoError(t, err)
		assert.Equal(t, core.ActionSkipAlreadyRunning, d.Action)
	})
}

func TestEvaluate_Overrides(t *testing.T) {
	t.Parallel()

	t.Run("SetRemaining", func(t *testing.T) {
		t.Parallel()
		f := newEvalFixture()
		p := testPolicy()
		st := core.NewPolicyState(p)

		d, err := f.eval.Evaluate(context.Background(), p, st, saturday, rotation.SetRemaining(5))
		require.NoError(t, err)
		assert.Equal(t, core.ActionNoop, d.Action)
		assert.Equal(t, 5, st.SynthsRemaining)

		saves := f.store.saved()
		require.Len(t, saves, 1)
		assert.Equal(t, 5, saves[0].SynthsRemaining)
		assert.Zero(t, f.query.callCount())
	})

	t.Run("SetRemainingNegative", func(t *testing.T) {
		t.Parallel()
		f := newEvalFixture()
		p := testPolicy()
		st := core.NewPolicyState(p)

		_, err := f.eval.Evaluate(context.Background(), p, st, saturday, rotation.SetRemaining(-1))
		assert.ErrorIs(t, err, core.ErrConfig)
		assert.Zero(t, st.SynthsRemaining)
		assert.Empty(t, f.store.saved())
	})

	t.Run("SetRemainingSaveFailure", func(t *testing.T) {
		t.Parallel()
		f := newEvalFixture()
		f.store.saveErr = core.ErrPersistence
		p := testPolicy()

		_, err := f.eval.Evaluate(context.Background(), p, core.NewPolicyState(p), saturday, rotation.SetRemaining(2))
		assert.ErrorIs(t, err, core.ErrPersistence)
	})

	t.Run("ForceBypassesChecks", func(t *testing.T) {
		t.Parallel()
		f := newEvalFixture()
		p := testPolicy()
		p.Enabled = false
		st := core.NewPolicyState(p)
		st.LastRealFull = saturday.Add(-time.Hour)
		st.FailureCount = 4

		d, err := f.eval.Evaluate(context.Background(), p, st, saturday.Add(3*day), rotation.ForceRun(core.BackupSynthetic))
		require.NoError(t, err)
		assert.Equal(t, core.Decision{Action: core.ActionRun, Kind: core.BackupSynthetic, Forced: true}, d)
		assert.Equal(t, 1, f.query.callCount())
	})

	t.Run("ForceGuardError", func(t *testing.T) {
		t.Parallel()
		f := newEvalFixture()
		f.query.err = errors.New("connection refused")
		p := testPolicy()

		_, err := f.eval.Evaluate(context.Background(), p, core.NewPolicyState(p), saturday, rotation.ForceRun(core.BackupReal))
		assert.ErrorIs(t, err, core.ErrGuardQuery)
	})
}

func TestOverride_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "none", rotation.NoOverride.String())
	assert.True(t, rotation.NoOverride.IsNone())
	assert.Equal(t, "force real", rotation.ForceRun(core.BackupReal).String())
	assert.Equal(t, "force synthetic", rotation.ForceRun(core.BackupSynthetic).String())
	assert.Equal(t, "set remaining 4", rotation.SetRemaining(4).String())
	assert.False(t, rotation.SetRemaining(0).IsNone())
}
