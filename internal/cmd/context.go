package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nbsynth/nbsynth/internal/alert"
	"github.com/nbsynth/nbsynth/internal/cmn/config"
	"github.com/nbsynth/nbsynth/internal/cmn/logger"
	"github.com/nbsynth/nbsynth/internal/cmn/logger/tag"
	"github.com/nbsynth/nbsynth/internal/core"
	"github.com/nbsynth/nbsynth/internal/service/scheduler"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Context holds the configuration for a command.
type Context struct {
	context.Context

	Command *cobra.Command
	Flags   []commandLineFlag
	Config  *config.Config
	Quiet   bool
}

// NewContext loads the configuration, applying flag overrides, and sets up
// the logger context.
func NewContext(cmd *cobra.Command, flags []commandLineFlag) (*Context, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return nil, fmt.Errorf("failed to get quiet flag: %w", err)
	}

	v := viper.New()
	if err := bindFlags(v, cmd, flags...); err != nil {
		return nil, err
	}

	var loaderOpts []config.ConfigLoaderOption
	if cfgPath, _ := cmd.Flags().GetString("config"); cfgPath != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(cfgPath))
	}

	cfg, err := config.NewConfigLoader(v, loaderOpts...).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	c := &Context{
		Context: ctx,
		Command: cmd,
		Flags:   flags,
		Config:  cfg,
		Quiet:   quiet,
	}
	c.Context = logger.WithLogger(ctx, logger.NewLogger(c.LoggerOptions()...))

	for _, w := range cfg.Warnings {
		logger.Warn(c, w)
	}
	return c, nil
}

// LoggerOptions returns the logger options derived from the configuration
// and the quiet flag.
func (c *Context) LoggerOptions() []logger.Option {
	opts := []logger.Option{logger.WithConsole(c.Command.ErrOrStderr())}
	if c.Config.Core.Debug {
		opts = append(opts, logger.WithDebug())
	}
	if c.Quiet {
		opts = append(opts, logger.WithQuiet())
	}
	if c.Config.Core.LogFormat != "" {
		opts = append(opts, logger.WithFormat(c.Config.Core.LogFormat))
	}
	return opts
}

// NewCoordinator creates a coordinator for the loaded configuration.
// Operator alerts are only sent when alerts is true.
func (c *Context) NewCoordinator(alerts bool, opts ...scheduler.Option) *scheduler.Coordinator {
	base := []scheduler.Option{scheduler.WithLoggerOptions(c.LoggerOptions()...)}
	if alerts {
		base = append(base, scheduler.WithAlerter(alert.New(c, c.Config.Alerts)))
	}
	return scheduler.NewCoordinator(c.Config, append(base, opts...)...)
}

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return core.ExitCode(err)
}

// osExit is replaced in tests.
var osExit = os.Exit

// NewCommand creates a new command instance with the given cobra command and run function.
// The context passed to runFunc is canceled on SIGINT and SIGTERM.
func NewCommand(cmd *cobra.Command, flags []commandLineFlag, runFunc func(ctx *Context, args []string) error) *cobra.Command {
	initFlags(cmd, flags...)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		sigCtx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		cmd.SetContext(sigCtx)

		ctx, err := NewContext(cmd, flags)
		if err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Initialization error: %v\n", err)
			osExit(exitCode(err))
			return nil
		}

		if err := runFunc(ctx, args); err != nil {
			code := exitCode(err)
			if code == core.ExitOK {
				logger.Warn(ctx, "Command finished with operational errors", tag.Error(err))
				return nil
			}
			logger.Error(ctx, "Command failed", tag.Error(err), tag.ExitCode(code))
			osExit(code)
		}
		return nil
	}

	return cmd
}
