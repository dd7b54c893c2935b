//go:build !windows && !plan9

package alert

import (
	"context"
	"fmt"
	"log/syslog"
)

type syslogWriter interface {
	Err(msg string) error
}

// Syslog writes alerts to the local syslog daemon at error priority.
type Syslog struct {
	w      syslogWriter
	prefix string
}

// NewSyslog connects to the local syslog daemon.
func NewSyslog(tag, prefix string) (*Syslog, error) {
	w, err := syslog.New(syslog.LOG_ERR|syslog.LOG_DAEMON, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to syslog: %w", err)
	}
	return &Syslog{w: w, prefix: prefix}, nil
}

func (s *Syslog) Alert(_ context.Context, a Alert) error {
	if err := s.w.Err(a.Text(s.prefix)); err != nil {
		return fmt.Errorf("failed to write syslog alert: %w", err)
	}
	return nil
}
