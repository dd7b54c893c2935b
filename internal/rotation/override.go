package rotation

import (
	"fmt"

	"github.com/nbsynth/nbsynth/internal/core"
)

type overrideKind int

const (
	overrideNone overrideKind = iota
	overrideForce
	overrideSetRemaining
)

// Override is a manual request that replaces the normal scheduling
// decision. The zero value requests no override.
type Override struct {
	kind      overrideKind
	backup    core.BackupKind
	remaining int
}

// NoOverride lets the evaluator decide.
var NoOverride = Override{}

// ForceRun requests a single-shot backup of the given kind that bypasses the
// due, failure and weekday checks. The concurrency guard is still consulted.
func ForceRun(kind core.BackupKind) Override {
	return Override{kind: overrideForce, backup: kind}
}

// SetRemaining requests that the remaining synthetic count be overwritten
// with n. No backup runs.
func SetRemaining(n int) Override {
	return Override{kind: overrideSetRemaining, remaining: n}
}

// IsNone reports whether no override was requested.
func (o Override) IsNone() bool {
	return o.kind == overrideNone
}

// Validate checks the override's arguments.
func (o Override) Validate() error {
	if o.kind == overrideSetRemaining && o.remaining < 0 {
		return fmt.Errorf("%w: remaining synthetic count must not be negative, got %d", core.ErrConfig, o.remaining)
	}
	return nil
}

func (o Override) String() string {
	switch o.kind {
	case overrideForce:
		return "force " + o.backup.String()
	case overrideSetRemaining:
		return fmt.Sprintf("set remaining %d", o.remaining)
	default:
		return "none"
	}
}
