package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/nbsynth/nbsynth/internal/cmn/duration"
	"github.com/nbsynth/nbsynth/internal/cmn/fileutil"
	"github.com/nbsynth/nbsynth/internal/core"
	"github.com/spf13/viper"
)

// Defaults applied when neither the config file nor the environment set a key.
const (
	DefaultBinDir             = "/usr/openv/netbackup/bin"
	DefaultSynthRetryInterval = 30 * time.Minute
	DefaultCron               = "0 * * * *"
	DefaultQueryTimeout       = 5 * time.Minute
)

// ConfigLoader reads and merges configuration from the config file,
// environment variables and defaults.
type ConfigLoader struct {
	v          *viper.Viper
	configFile string
	warnings   []string
}

// ConfigLoaderOption defines a functional option for configuring a ConfigLoader.
type ConfigLoaderOption func(*ConfigLoader)

// WithConfigFile sets the configuration file path.
func WithConfigFile(configFile string) ConfigLoaderOption {
	return func(l *ConfigLoader) {
		l.configFile = configFile
	}
}

// NewConfigLoader creates a ConfigLoader with the given viper instance and options.
func NewConfigLoader(v *viper.Viper, options ...ConfigLoaderOption) *ConfigLoader {
	loader := &ConfigLoader{v: v}
	for _, opt := range options {
		opt(loader)
	}
	return loader
}

// Load is a shorthand for NewConfigLoader(viper.New(), opts...).Load().
func Load(opts ...ConfigLoaderOption) (*Config, error) {
	return NewConfigLoader(viper.New(), opts...).Load()
}

// Load reads configuration files, applies defaults and environment overrides,
// and returns a validated Config instance. Every error wraps core.ErrConfig.
func (l *ConfigLoader) Load() (*Config, error) {
	l.configureViper()
	l.setViperDefaultValues()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: failed to read config: %w", core.ErrConfig, err)
		}
	}

	var def Definition
	if err := l.v.Unmarshal(&def); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal config: %w", core.ErrConfig, err)
	}

	cfg, err := l.buildConfig(def)
	if err != nil {
		return nil, err
	}

	if used := l.v.ConfigFileUsed(); used != "" {
		cfg.Paths.ConfigFileUsed = used
	}
	cfg.Warnings = l.warnings
	return cfg, nil
}

func (l *ConfigLoader) buildConfig(def Definition) (*Config, error) {
	cfg := Config{
		Core: Core{
			Debug:     def.Debug || os.Getenv("DEBUG") != "",
			LogFormat: strings.ToLower(def.LogFormat),
			TZ:        def.TZ,
		},
		Scheduler: Scheduler{
			SynthRetryInterval: l.parseDuration("scheduler.synth_retry_interval", def.Scheduler.SynthRetryInterval, DefaultSynthRetryInterval),
			Cron:               def.Scheduler.Cron,
		},
		NetBackup: NetBackup{
			InvokeTimeout: l.parseDuration("netbackup.invoke_timeout", def.NetBackup.InvokeTimeout, 0),
			QueryTimeout:  l.parseDuration("netbackup.query_timeout", def.NetBackup.QueryTimeout, DefaultQueryTimeout),
		},
		Alerts: Alerts{
			TicketPrefix: def.Alerts.TicketPrefix,
			Syslog: SyslogAlert{
				Enabled: def.Alerts.Syslog.Enabled,
				Tag:     def.Alerts.Syslog.Tag,
			},
			Slack: SlackAlert{
				WebhookURL: def.Alerts.Slack.WebhookURL,
				Channel:    def.Alerts.Slack.Channel,
			},
		},
	}

	if err := setTimezone(&cfg.Core); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrConfig, err)
	}

	paths := []struct {
		name   string
		value  string
		target *string
	}{
		{"paths.state_dir", def.Paths.StateDir, &cfg.Paths.StateDir},
		{"paths.log_dir", def.Paths.LogDir, &cfg.Paths.LogDir},
		{"paths.policies", def.Paths.Policies, &cfg.Paths.Policies},
		{"paths.base_policy", def.Paths.BasePolicy, &cfg.Paths.BasePolicy},
		{"netbackup.bin_dir", def.NetBackup.BinDir, &cfg.NetBackup.BinDir},
		{"metrics.textfile", def.Metrics.Textfile, &cfg.Metrics.Textfile},
	}
	for _, p := range paths {
		resolved, err := fileutil.ResolvePath(p.value)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to resolve %s %q: %w", core.ErrConfig, p.name, p.value, err)
		}
		*p.target = resolved
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// parseDuration parses a duration string, falling back to def and adding a
// warning if the value is invalid.
func (l *ConfigLoader) parseDuration(fieldName, value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := duration.Parse(value)
	if err != nil {
		l.warnings = append(l.warnings, fmt.Sprintf("Invalid %s value: %s", fieldName, value))
		return def
	}
	return d
}

func (l *ConfigLoader) configureViper() {
	if l.configFile == "" {
		l.v.AddConfigPath(filepath.Join(xdg.ConfigHome, AppSlug))
		l.v.AddConfigPath(filepath.Join("/etc", AppSlug))
		l.v.SetConfigName("config")
	} else {
		l.v.SetConfigFile(l.configFile)
	}
	l.v.SetConfigType("yaml")
	l.v.SetEnvPrefix(strings.ToUpper(AppSlug))
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	l.v.AutomaticEnv()
}

func (l *ConfigLoader) setViperDefaultValues() {
	dataDir := filepath.Join(xdg.DataHome, AppSlug)
	configDir := filepath.Join(xdg.ConfigHome, AppSlug)

	l.v.SetDefault("debug", false)
	l.v.SetDefault("log_format", "text")
	l.v.SetDefault("tz", "")

	l.v.SetDefault("paths.state_dir", filepath.Join(dataDir, "state"))
	l.v.SetDefault("paths.log_dir", filepath.Join(dataDir, "logs"))
	l.v.SetDefault("paths.policies", filepath.Join(configDir, "policies", "*.yaml"))
	l.v.SetDefault("paths.base_policy", "")

	l.v.SetDefault("netbackup.bin_dir", DefaultBinDir)
	l.v.SetDefault("netbackup.invoke_timeout", "")
	l.v.SetDefault("netbackup.query_timeout", DefaultQueryTimeout.String())

	l.v.SetDefault("scheduler.synth_retry_interval", DefaultSynthRetryInterval.String())
	l.v.SetDefault("scheduler.cron", DefaultCron)

	l.v.SetDefault("alerts.ticket_prefix", "")
	l.v.SetDefault("alerts.syslog.enabled", true)
	l.v.SetDefault("alerts.syslog.tag", AppSlug)
	l.v.SetDefault("alerts.slack.webhook_url", "")
	l.v.SetDefault("alerts.slack.channel", "")

	l.v.SetDefault("metrics.textfile", "")
}
