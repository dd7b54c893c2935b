package rotation_test

import (
	"context"
	"testing"
	"time"

	"github.com/nbsynth/nbsynth/internal/core"
	"github.com/nbsynth/nbsynth/internal/rotation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingQuery struct{}

func (blockingQuery) FindRunning(ctx context.Context, _, _ string) (*core.RunningJob, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestGuard_IsRunning(t *testing.T) {
	t.Parallel()

	t.Run("NoJob", func(t *testing.T) {
		t.Parallel()
		job, err := rotation.NewGuard(&mockQuery{}, 0).IsRunning(context.Background(), "P", "c")
		require.NoError(t, err)
		assert.Nil(t, job)
	})

	t.Run("Requeued", func(t *testing.T) {
		t.Parallel()
		q := &mockQuery{job: &core.RunningJob{ID: "12", State: core.JobRequeued, Schedule: "SYNTH-FULL"}}
		job, err := rotation.NewGuard(q, time.Minute).IsRunning(context.Background(), "P", "c")
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, "12", job.ID)
	})

	t.Run("QueryTimeout", func(t *testing.T) {
		t.Parallel()
		job, err := rotation.NewGuard(blockingQuery{}, 10*time.Millisecond).IsRunning(context.Background(), "P", "c")
		require.Error(t, err)
		assert.Nil(t, job)
		assert.ErrorIs(t, err, core.ErrGuardQuery)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
