// Package rotation decides which full backup a policy needs and drives it to
// a terminal outcome.
package rotation

import (
	"context"
	"time"

	"github.com/nbsynth/nbsynth/internal/core"
)

// Clock returns the current time.
type Clock func() time.Time

// StateStore loads and durably saves the state of a policy.
type StateStore interface {
	Load(ctx context.Context, p *core.Policy) (*core.PolicyState, error)
	Save(ctx context.Context, st *core.PolicyState) error
}

// Invoker starts a full backup and waits for it to finish. It returns the
// exit status of the backup command.
type Invoker interface {
	RunBackup(ctx context.Context, policy, schedule string) (int, error)
}

// JobQuery looks up an in-flight job for a policy/client pair. It returns
// nil when no job is running.
type JobQuery interface {
	FindRunning(ctx context.Context, policy, client string) (*core.RunningJob, error)
}
