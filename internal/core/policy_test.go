package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrequency(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Frequency
		wantErr bool
	}{
		{name: "weekly", input: "weekly", want: FrequencyWeekly},
		{name: "monthly mixed case", input: "Monthly", want: FrequencyMonthly},
		{name: "padded", input: " weekly ", want: FrequencyWeekly},
		{name: "daily is unsupported", input: "daily", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseFrequency(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFrequencyWindow(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 6*24*time.Hour+23*time.Hour, FrequencyWeekly.Window())
	assert.Equal(t, 27*24*time.Hour+23*time.Hour, FrequencyMonthly.Window())
}

func TestParseWeekday(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    time.Weekday
		wantErr bool
	}{
		{input: "monday", want: time.Monday},
		{input: "Sunday", want: time.Sunday},
		{input: "sat", want: time.Saturday},
		{input: "THU", want: time.Thursday},
		{input: "mo", wantErr: true},
		{input: "someday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParseWeekday(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseBackupKind(t *testing.T) {
	t.Parallel()

	kind, err := ParseBackupKind("REAL")
	require.NoError(t, err)
	assert.Equal(t, BackupReal, kind)

	kind, err = ParseBackupKind("synth")
	require.NoError(t, err)
	assert.Equal(t, BackupSynthetic, kind)

	_, err = ParseBackupKind("incremental")
	require.ErrorIs(t, err, ErrConfig)
}

func TestPolicySchedule(t *testing.T) {
	t.Parallel()

	p := &Policy{
		PolicyName:    "fs01",
		ClientName:    "host-a",
		RealSchedule:  "REAL",
		SynthSchedule: "SYNTH",
	}
	assert.Equal(t, "REAL", p.Schedule(BackupReal))
	assert.Equal(t, "SYNTH", p.Schedule(BackupSynthetic))
	assert.Equal(t, "fs01_host-a", p.StateKey())
}
