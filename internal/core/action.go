package core

import "fmt"

// Action is the decision taken for one scheduling pass of a policy.
type Action int

const (
	ActionNoop Action = iota
	ActionRun
	ActionSkipNotDue
	ActionSkipAlreadyRunning
	ActionSkipFailureThreshold
	ActionSkipWrongWeekday
	ActionSkipDisabled
)

var actionNames = map[Action]string{
	ActionNoop:                 "noop",
	ActionRun:                  "run",
	ActionSkipNotDue:           "skip-not-due",
	ActionSkipAlreadyRunning:   "skip-already-running",
	ActionSkipFailureThreshold: "skip-failure-threshold",
	ActionSkipWrongWeekday:     "skip-wrong-weekday",
	ActionSkipDisabled:         "skip-disabled",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// IsSkip reports whether the action ends the pass without running a backup.
func (a Action) IsSkip() bool {
	return a != ActionNoop && a != ActionRun
}

// Decision is the evaluator's result. Kind is only meaningful for ActionRun;
// Job is set for ActionSkipAlreadyRunning.
type Decision struct {
	Action Action
	Kind   BackupKind
	Forced bool
	Job    *RunningJob
}

func (d Decision) String() string {
	if d.Action == ActionRun {
		if d.Forced {
			return fmt.Sprintf("run %s (forced)", d.Kind)
		}
		return "run " + d.Kind.String()
	}
	return d.Action.String()
}

// Outcome is the terminal result of executing a run decision.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailed
)

func (o Outcome) String() string {
	if o == OutcomeSuccess {
		return "success"
	}
	return "failed"
}

// JobState is the queue state of an in-flight NetBackup job.
type JobState string

const (
	JobQueued   JobState = "queued"
	JobActive   JobState = "active"
	JobRequeued JobState = "requeued"
)

// RunningJob describes an in-flight job found for a policy/client pair.
type RunningJob struct {
	ID       string
	State    JobState
	Schedule string
}

func (j *RunningJob) String() string {
	return fmt.Sprintf("job %s (state: %s, schedule: %s)", j.ID, j.State, j.Schedule)
}
