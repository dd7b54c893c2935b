package core

import "time"

// FailureThreshold is the number of consecutive failures after which
// scheduled runs stop until an operator intervenes.
const FailureThreshold = 3

// PolicyState is the persisted rotation state of one policy/client pair.
// A zero time means the backup never completed.
type PolicyState struct {
	PolicyName       string       `json:"policyName"`
	ClientName       string       `json:"clientName"`
	Frequency        Frequency    `json:"frequency"`
	Weekday          time.Weekday `json:"weekday"`
	SynthsBeforeReal int          `json:"synthsBeforeReal"`

	LastRealFull    time.Time `json:"lastRealFull,omitzero"`
	LastSynthFull   time.Time `json:"lastSynthFull,omitzero"`
	SynthsRemaining int       `json:"synthsRemaining"`
	FailureCount    int       `json:"failureCount"`
}

// NewPolicyState returns the state of a policy that has never run.
func NewPolicyState(p *Policy) *PolicyState {
	s := &PolicyState{
		PolicyName: p.PolicyName,
		ClientName: p.ClientName,
	}
	s.ApplyPolicy(p)
	return s
}

// ApplyPolicy refreshes the configuration fields from the policy definition.
// Identity and rotation history are left untouched.
func (s *PolicyState) ApplyPolicy(p *Policy) {
	s.Frequency = p.Frequency
	s.Weekday = p.Weekday
	s.SynthsBeforeReal = p.SynthsBeforeReal
}

// LastFull returns the most recent full backup of either kind.
func (s *PolicyState) LastFull() time.Time {
	if s.LastSynthFull.After(s.LastRealFull) {
		return s.LastSynthFull
	}
	return s.LastRealFull
}

// RecordSuccess applies a successful full backup started at startedAt.
func (s *PolicyState) RecordSuccess(kind BackupKind, startedAt time.Time) {
	switch kind {
	case BackupReal:
		s.LastRealFull = startedAt
		s.SynthsRemaining = s.SynthsBeforeReal
	case BackupSynthetic:
		s.LastSynthFull = startedAt
		if s.SynthsRemaining > 0 {
			s.SynthsRemaining--
		}
	}
	s.FailureCount = 0
}

// RecordFailure counts a failed scheduled attempt.
func (s *PolicyState) RecordFailure() {
	s.FailureCount++
}

// Clone returns a copy of the state.
func (s *PolicyState) Clone() *PolicyState {
	c := *s
	return &c
}
