// Package output renders policy rotation state and run results as tables.
package output

import (
	"github.com/fatih/color"
	"github.com/nbsynth/nbsynth/internal/core"
)

// Health summarizes how a policy is doing.
type Health int

const (
	HealthOK Health = iota
	HealthNeverRun
	HealthFailing
	HealthBlocked
	HealthDisabled
	HealthUnknown
)

// Health symbols using Unicode characters for visual clarity.
const (
	SymbolOK       = "✓"
	SymbolNeverRun = "○"
	SymbolFailing  = "⚠"
	SymbolBlocked  = "✗"
	SymbolDisabled = "◌"
	SymbolUnknown  = "?"
)

// HealthOf classifies a policy and its state. A nil state means it could
// not be loaded.
func HealthOf(p *core.Policy, st *core.PolicyState) Health {
	switch {
	case st == nil:
		return HealthUnknown
	case !p.Enabled:
		return HealthDisabled
	case st.FailureCount >= core.FailureThreshold:
		return HealthBlocked
	case st.FailureCount > 0:
		return HealthFailing
	case st.LastRealFull.IsZero():
		return HealthNeverRun
	default:
		return HealthOK
	}
}

// Symbol returns the Unicode symbol of the health.
func (h Health) Symbol() string {
	switch h {
	case HealthOK:
		return SymbolOK
	case HealthNeverRun:
		return SymbolNeverRun
	case HealthFailing:
		return SymbolFailing
	case HealthBlocked:
		return SymbolBlocked
	case HealthDisabled:
		return SymbolDisabled
	default:
		return SymbolUnknown
	}
}

func (h Health) String() string {
	switch h {
	case HealthOK:
		return "OK"
	case HealthNeverRun:
		return "Never Run"
	case HealthFailing:
		return "Failing"
	case HealthBlocked:
		return "Blocked"
	case HealthDisabled:
		return "Disabled"
	default:
		return "Unknown"
	}
}

// Colorize applies the health color to s.
func (h Health) Colorize(s string) string {
	switch h {
	case HealthOK:
		return color.GreenString(s)
	case HealthNeverRun:
		return color.BlueString(s)
	case HealthFailing:
		return color.YellowString(s)
	case HealthBlocked:
		return color.RedString(s)
	case HealthDisabled:
		return color.New(color.Faint).Sprint(s)
	default:
		return color.New(color.FgHiRed).Sprint(s)
	}
}
