package config

// Definition mirrors the configuration file. Each field maps to a key in
// config.yaml or an NBSYNTH_* environment variable.
type Definition struct {
	// Debug toggles debug logging.
	Debug bool `mapstructure:"debug"`

	// LogFormat is "text" or "json".
	LogFormat string `mapstructure:"log_format"`

	// TZ is the time zone used to decide the current weekday, e.g. "America/New_York".
	TZ string `mapstructure:"tz"`

	Paths     PathsDef     `mapstructure:"paths"`
	NetBackup NetBackupDef `mapstructure:"netbackup"`
	Scheduler SchedulerDef `mapstructure:"scheduler"`
	Alerts    AlertsDef    `mapstructure:"alerts"`
	Metrics   MetricsDef   `mapstructure:"metrics"`
}

// PathsDef configures where state, logs and policy files live.
type PathsDef struct {
	StateDir string `mapstructure:"state_dir"`
	LogDir   string `mapstructure:"log_dir"`
	// Policies is a glob matching the policy files used by the scheduler daemon.
	Policies string `mapstructure:"policies"`
	// BasePolicy is an optional policy file providing defaults for all policies.
	BasePolicy string `mapstructure:"base_policy"`
}

// NetBackupDef configures the NetBackup command line tools.
type NetBackupDef struct {
	BinDir        string `mapstructure:"bin_dir"`
	InvokeTimeout string `mapstructure:"invoke_timeout"`
	QueryTimeout  string `mapstructure:"query_timeout"`
}

// SchedulerDef configures the rotation engine and the daemon.
type SchedulerDef struct {
	SynthRetryInterval string `mapstructure:"synth_retry_interval"`
	Cron               string `mapstructure:"cron"`
}

// AlertsDef configures the operator alert channels.
type AlertsDef struct {
	TicketPrefix string         `mapstructure:"ticket_prefix"`
	Syslog       SyslogAlertDef `mapstructure:"syslog"`
	Slack        SlackAlertDef  `mapstructure:"slack"`
}

// SyslogAlertDef configures syslog alerts.
type SyslogAlertDef struct {
	Enabled bool   `mapstructure:"enabled"`
	Tag     string `mapstructure:"tag"`
}

// SlackAlertDef configures Slack incoming webhook alerts.
type SlackAlertDef struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

// MetricsDef configures the Prometheus textfile export.
type MetricsDef struct {
	// Textfile is written after every scheduling pass, e.g. into the
	// node_exporter textfile collector directory. Empty disables it.
	Textfile string `mapstructure:"textfile"`
}
