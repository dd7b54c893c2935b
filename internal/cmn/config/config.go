package config

import (
	"fmt"
	"time"

	"github.com/nbsynth/nbsynth/internal/core"
)

// Config holds the validated application configuration.
type Config struct {
	Core      Core
	Paths     PathsConfig
	NetBackup NetBackup
	Scheduler Scheduler
	Alerts    Alerts
	Metrics   Metrics
	Warnings  []string
}

// Core holds global settings.
type Core struct {
	Debug     bool
	LogFormat string
	TZ        string
	Location  *time.Location
}

// PathsConfig holds resolved filesystem paths.
type PathsConfig struct {
	StateDir       string
	LogDir         string
	Policies       string
	BasePolicy     string
	ConfigFileUsed string
}

// NetBackup holds settings for the NetBackup command line tools.
type NetBackup struct {
	BinDir string
	// InvokeTimeout bounds a single bpbackup invocation. Zero means no limit.
	InvokeTimeout time.Duration
	// QueryTimeout bounds a single bpdbjobs query. Zero means no limit.
	QueryTimeout time.Duration
}

// Scheduler holds rotation engine and daemon settings.
type Scheduler struct {
	// SynthRetryInterval is the wait before retrying a failed synthetic full.
	SynthRetryInterval time.Duration
	// Cron is the schedule the daemon evaluates policies on.
	Cron string
}

// Alerts holds operator alert settings.
type Alerts struct {
	TicketPrefix string
	Syslog       SyslogAlert
	Slack        SlackAlert
}

// SyslogAlert holds syslog alert settings.
type SyslogAlert struct {
	Enabled bool
	Tag     string
}

// SlackAlert holds Slack alert settings. Alerts are disabled when WebhookURL is empty.
type SlackAlert struct {
	WebhookURL string
	Channel    string
}

// Metrics holds the Prometheus textfile settings.
type Metrics struct {
	// Textfile is the file the rotation metrics are written to. Empty disables it.
	Textfile string
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Core.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: invalid log_format %q: must be \"text\" or \"json\"", core.ErrConfig, c.Core.LogFormat)
	}
	if c.Paths.StateDir == "" {
		return fmt.Errorf("%w: paths.state_dir is required", core.ErrConfig)
	}
	if c.NetBackup.BinDir == "" {
		return fmt.Errorf("%w: netbackup.bin_dir is required", core.ErrConfig)
	}
	return nil
}
