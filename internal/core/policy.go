package core

import (
	"fmt"
	"strings"
	"time"
)

// Frequency controls how often a full backup cycle is due.
type Frequency string

const (
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// frequencySlack is subtracted from every window so a cycle due "every 7
// days" is not skipped because of a few minutes of scheduler drift.
const frequencySlack = time.Hour

// ParseFrequency parses a frequency name. The comparison is case-insensitive.
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weekly":
		return FrequencyWeekly, nil
	case "monthly":
		return FrequencyMonthly, nil
	default:
		return "", fmt.Errorf("%w: invalid frequency %q: only \"weekly\" and \"monthly\" are supported", ErrConfig, s)
	}
}

// Window returns the minimum time that must pass between two full backups.
func (f Frequency) Window() time.Duration {
	switch f {
	case FrequencyMonthly:
		return 28*24*time.Hour - frequencySlack
	default:
		return 7*24*time.Hour - frequencySlack
	}
}

// ParseWeekday parses a weekday name ("monday", "Mon", ...).
func ParseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if len(name) >= 3 {
		for d := time.Sunday; d <= time.Saturday; d++ {
			full := strings.ToLower(d.String())
			if name == full || name == full[:3] {
				return d, nil
			}
		}
	}
	return time.Sunday, fmt.Errorf("%w: invalid weekday %q", ErrConfig, s)
}

// BackupKind is the type of full backup to run.
type BackupKind int

const (
	BackupReal BackupKind = iota
	BackupSynthetic
)

func (k BackupKind) String() string {
	if k == BackupSynthetic {
		return "synthetic"
	}
	return "real"
}

// ParseBackupKind parses the value given to the --force flag.
func ParseBackupKind(s string) (BackupKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "real":
		return BackupReal, nil
	case "synth", "synthetic":
		return BackupSynthetic, nil
	default:
		return BackupReal, fmt.Errorf("%w: invalid backup type %q: must be \"real\" or \"synth\"", ErrConfig, s)
	}
}

// Default NetBackup schedule names used for each kind of full backup.
const (
	DefaultRealSchedule  = "REAL-FULL"
	DefaultSynthSchedule = "SYNTH-FULL"
)

// Policy is a validated policy definition loaded from a policy file.
type Policy struct {
	// File is the policy file the definition was read from.
	File string
	// Name is the policy file base name without extension; used for log files.
	Name string

	PolicyName       string
	ClientName       string
	Enabled          bool
	Frequency        Frequency
	Weekday          time.Weekday
	SynthsBeforeReal int
	RealSchedule     string
	SynthSchedule    string
}

// StateKey returns the key addressing the policy's state record.
func (p *Policy) StateKey() string {
	return StateKey(p.PolicyName, p.ClientName)
}

// Schedule returns the NetBackup schedule used for the given kind.
func (p *Policy) Schedule(kind BackupKind) string {
	if kind == BackupSynthetic {
		return p.SynthSchedule
	}
	return p.RealSchedule
}

// StateKey derives the deterministic state key of a policy/client pair.
func StateKey(policy, client string) string {
	return policy + "_" + client
}
