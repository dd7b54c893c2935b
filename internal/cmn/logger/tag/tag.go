// Package tag provides standardized tag functions for structured logging.
//
// All tag keys use kebab-case naming convention for consistency.
// Use these functions instead of raw strings to ensure consistent
// log output across the codebase.
package tag

import (
	"log/slog"
	"time"
)

// String creates a free-form string tag.
func String(key, value string) slog.Attr {
	return slog.String(key, value)
}

// Error creates a tag for error objects.
func Error(err any) slog.Attr {
	return slog.Any("err", err)
}

// Identification tags

// Policy creates a tag for NetBackup policy names.
func Policy(name string) slog.Attr {
	return slog.String("policy", name)
}

// Client creates a tag for NetBackup client names.
func Client(name string) slog.Attr {
	return slog.String("client", name)
}

// PolicyFile creates a tag for policy definition files.
func PolicyFile(path string) slog.Attr {
	return slog.String("policy-file", path)
}

// RunID creates a tag for scheduling pass IDs.
func RunID(id string) slog.Attr {
	return slog.String("run-id", id)
}

// JobID creates a tag for NetBackup job IDs.
func JobID(id string) slog.Attr {
	return slog.String("job-id", id)
}

// Path tags

// File creates a tag for file paths.
func File(path string) slog.Attr {
	return slog.String("file", path)
}

// Dir creates a tag for directory paths.
func Dir(path string) slog.Attr {
	return slog.String("dir", path)
}

// Rotation tags

// Action creates a tag for scheduling decisions.
func Action(a string) slog.Attr {
	return slog.String("action", a)
}

// Kind creates a tag for backup kinds (real, synthetic).
func Kind(k string) slog.Attr {
	return slog.String("kind", k)
}

// Schedule creates a tag for NetBackup schedule names.
func Schedule(name string) slog.Attr {
	return slog.String("schedule", name)
}

// Attempt creates a tag for attempt numbers.
func Attempt(n int) slog.Attr {
	return slog.Int("attempt", n)
}

// FailureCount creates a tag for consecutive failure counts.
func FailureCount(n int) slog.Attr {
	return slog.Int("failure-count", n)
}

// SynthsRemaining creates a tag for the remaining synthetic fulls.
func SynthsRemaining(n int) slog.Attr {
	return slog.Int("synths-remaining", n)
}

// Execution tags

// Status creates a tag for status values.
func Status(status string) slog.Attr {
	return slog.String("status", status)
}

// ExitCode creates a tag for process exit codes.
func ExitCode(code int) slog.Attr {
	return slog.Int("exit-code", code)
}

// Interval creates a tag for wait intervals.
func Interval(d time.Duration) slog.Attr {
	return slog.Duration("interval", d)
}

// Timeout creates a tag for timeout duration values.
func Timeout(d time.Duration) slog.Attr {
	return slog.Duration("timeout", d)
}

// Time creates a tag for a point in time.
func Time(key string, t time.Time) slog.Attr {
	return slog.Time(key, t)
}

// Count creates a tag for numeric counts.
func Count(n int) slog.Attr {
	return slog.Int("count", n)
}
