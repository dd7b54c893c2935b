//go:build windows || plan9

package alert

import (
	"context"
	"errors"
)

// Syslog is unavailable on this platform.
type Syslog struct{}

// NewSyslog always fails on this platform.
func NewSyslog(_, _ string) (*Syslog, error) {
	return nil, errors.New("syslog is not supported on this platform")
}

func (s *Syslog) Alert(context.Context, Alert) error { return nil }
