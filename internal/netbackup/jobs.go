package netbackup

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nbsynth/nbsynth/internal/core"
)

// Column positions in the output of bpdbjobs -most_columns.
const (
	colJobID    = 0
	colState    = 2
	colPolicy   = 4
	colSchedule = 5
	colClient   = 6
	minColumns  = colClient + 1
)

// Job is one row of bpdbjobs output.
type Job struct {
	ID       string
	State    string
	Policy   string
	Schedule string
	Client   string
}

// jobStates maps the bpdbjobs state codes that count as in flight.
// Done (3), suspended (4) and incomplete (5) are not.
var jobStates = map[string]core.JobState{
	"0": core.JobQueued,
	"1": core.JobActive,
	"2": core.JobRequeued,
}

// RunningState returns the in-flight state of the job, if any.
func (j Job) RunningState() (core.JobState, bool) {
	s, ok := jobStates[j.State]
	return s, ok
}

// ParseJobs reads bpdbjobs -most_columns output. Rows are comma separated
// with a variable number of fields; rows too short to hold a client are
// skipped.
func ParseJobs(r io.Reader) ([]Job, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	var jobs []Job
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse bpdbjobs output: %w", err)
		}
		if len(record) < minColumns {
			continue
		}
		jobs = append(jobs, Job{
			ID:       strings.TrimSpace(record[colJobID]),
			State:    strings.TrimSpace(record[colState]),
			Policy:   strings.TrimSpace(record[colPolicy]),
			Schedule: strings.TrimSpace(record[colSchedule]),
			Client:   strings.TrimSpace(record[colClient]),
		})
	}
	return jobs, nil
}

// FindRunning returns the last in-flight job matching policy and client.
func FindRunning(jobs []Job, policy, client string) *core.RunningJob {
	var found *core.RunningJob
	for _, j := range jobs {
		if j.Policy != policy || j.Client != client {
			continue
		}
		state, ok := j.RunningState()
		if !ok {
			continue
		}
		found = &core.RunningJob{ID: j.ID, State: state, Schedule: j.Schedule}
	}
	return found
}
