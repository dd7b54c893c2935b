package output

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nbsynth/nbsynth/internal/cmn/stringutil"
	"github.com/nbsynth/nbsynth/internal/core"
)

const (
	// TimeFormat is the layout used for backup timestamps.
	TimeFormat = "2006-01-02 15:04 MST"
	// MaxErrorWidth is the widest error message shown in a table cell.
	MaxErrorWidth = 120
)

// Config holds configuration for table rendering.
type Config struct {
	ColorEnabled bool           // Enable colored output using ANSI escape codes.
	Location     *time.Location // Time zone for timestamps. Defaults to time.Local.
}

// Renderer renders reports and run summaries.
type Renderer struct {
	config Config
}

// NewRenderer creates a Renderer.
func NewRenderer(config Config) *Renderer {
	if config.Location == nil {
		config.Location = time.Local
	}
	return &Renderer{config: config}
}

// ReportRow is one policy in a state report.
type ReportRow struct {
	File string
	// Policy is nil when the policy file could not be loaded.
	Policy    *core.Policy
	State     *core.PolicyState
	StatePath string
	// Err is set when the policy or its state could not be loaded.
	Err error
}

var reportHeader = table.Row{
	"",
	"Policy",
	"Client",
	"Frequency",
	"Weekday",
	"Last Real Full",
	"Last Synth Full",
	"Synths Left",
	"Failures",
	"State File",
}

// RenderReport renders the rotation state of every row.
func (r *Renderer) RenderReport(rows []ReportRow) string {
	t := r.newTable()
	t.AppendHeader(reportHeader)

	for _, row := range rows {
		p := row.Policy
		health := HealthOf(p, row.State)
		if p == nil {
			msg := "invalid policy file"
			if row.Err != nil {
				msg = stringutil.TruncString(row.Err.Error(), MaxErrorWidth)
			}
			t.AppendRow(table.Row{
				r.colorize(health, health.Symbol()),
				filepath.Base(row.File), "", "", "",
				r.colorize(health, msg), "", "", "", "",
			})
			continue
		}
		dataRow := table.Row{
			r.colorize(health, health.Symbol()),
			p.PolicyName,
			p.ClientName,
			string(p.Frequency),
			p.Weekday.String(),
		}
		if row.State == nil {
			msg := "state unavailable"
			if row.Err != nil {
				msg = stringutil.TruncString(row.Err.Error(), MaxErrorWidth)
			}
			dataRow = append(dataRow, r.colorize(health, msg), "", "", "", row.StatePath)
		} else {
			st := row.State
			dataRow = append(dataRow,
				r.formatTime(st.LastRealFull),
				r.formatTime(st.LastSynthFull),
				fmt.Sprintf("%d/%d", st.SynthsRemaining, st.SynthsBeforeReal),
				r.colorize(health, strconv.Itoa(st.FailureCount)),
				row.StatePath,
			)
		}
		t.AppendRow(dataRow)
	}

	return t.Render()
}

var summaryHeader = table.Row{
	"Policy",
	"Client",
	"Decision",
	"Outcome",
	"Error",
}

// SummaryRow is one policy in a run summary.
type SummaryRow struct {
	Policy   *core.Policy
	Decision core.Decision
	Executed bool
	Outcome  core.Outcome
	Err      error
}

// RenderSummary renders the result of a scheduling pass.
func (r *Renderer) RenderSummary(rows []SummaryRow) string {
	t := r.newTable()
	t.AppendHeader(summaryHeader)

	for _, row := range rows {
		outcome := "-"
		if row.Executed {
			outcome = row.Outcome.String()
			if row.Outcome == core.OutcomeSuccess {
				outcome = r.colorize(HealthOK, outcome)
			} else {
				outcome = r.colorize(HealthBlocked, outcome)
			}
		}
		errText := ""
		if row.Err != nil {
			errText = stringutil.TruncString(row.Err.Error(), MaxErrorWidth)
		}
		t.AppendRow(table.Row{
			row.Policy.PolicyName,
			row.Policy.ClientName,
			row.Decision.String(),
			outcome,
			errText,
		})
	}

	return t.Render()
}

func (r *Renderer) newTable() table.Writer {
	t := table.NewWriter()
	if r.config.ColorEnabled {
		t.SetStyle(table.StyleLight)
	}
	return t
}

func (r *Renderer) formatTime(ts time.Time) string {
	if ts.IsZero() {
		return "never"
	}
	return ts.In(r.config.Location).Format(TimeFormat)
}

func (r *Renderer) colorize(h Health, s string) string {
	if !r.config.ColorEnabled {
		return s
	}
	return h.Colorize(s)
}
