// Package alert delivers operator alerts for conditions that need a human.
package alert

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nbsynth/nbsynth/internal/cmn/config"
	"github.com/nbsynth/nbsynth/internal/cmn/logger"
	"github.com/nbsynth/nbsynth/internal/cmn/logger/tag"
)

// Alert is a single operator notification.
type Alert struct {
	Policy string
	Client string
	// PolicyFile is the file the policy was loaded from, if known.
	PolicyFile string
	Message    string
	Err        error
}

// Text renders the alert as one line starting with prefix, e.g. a ticket
// marker picked up by the monitoring system.
func (a Alert) Text(prefix string) string {
	var b strings.Builder
	if prefix != "" {
		b.WriteString(prefix)
		b.WriteByte(' ')
	}
	if a.Policy != "" || a.Client != "" {
		fmt.Fprintf(&b, "%s/%s: ", a.Policy, a.Client)
	} else if a.PolicyFile != "" {
		fmt.Fprintf(&b, "%s: ", a.PolicyFile)
	}
	b.WriteString(a.Message)
	if a.Err != nil {
		fmt.Fprintf(&b, ": %v", a.Err)
	}
	return b.String()
}

// Alerter sends alerts.
type Alerter interface {
	Alert(ctx context.Context, a Alert) error
}

// Nop drops every alert.
type Nop struct{}

func (Nop) Alert(context.Context, Alert) error { return nil }

// Multi sends every alert to all alerters.
type Multi []Alerter

func (m Multi) Alert(ctx context.Context, a Alert) error {
	var errs []error
	for _, alerter := range m {
		if err := alerter.Alert(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// New builds the alerters enabled in cfg. A channel that cannot be set up is
// logged and left out so that alerting problems never stop a backup.
func New(ctx context.Context, cfg config.Alerts) Alerter {
	var alerters Multi

	if cfg.Syslog.Enabled {
		s, err := NewSyslog(cfg.Syslog.Tag, cfg.TicketPrefix)
		if err != nil {
			logger.Warn(ctx, "Syslog alerts disabled", tag.Error(err))
		} else {
			alerters = append(alerters, s)
		}
	}

	if cfg.Slack.WebhookURL != "" {
		alerters = append(alerters, NewSlack(cfg.Slack.WebhookURL, cfg.Slack.Channel, cfg.TicketPrefix))
	}

	switch len(alerters) {
	case 0:
		return Nop{}
	case 1:
		return alerters[0]
	default:
		return alerters
	}
}
