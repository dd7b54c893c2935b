package cmd

import (
	"fmt"

	"github.com/nbsynth/nbsynth/internal/cmn/logger"
	"github.com/nbsynth/nbsynth/internal/cmn/logger/tag"
	"github.com/nbsynth/nbsynth/internal/service/scheduler"
	"github.com/spf13/cobra"
)

func Scheduler() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "scheduler [flags]",
			Short: "Start the scheduler process",
			Long: `Launch the scheduler process that evaluates every policy on a cron schedule.

Example:
  nbsynth scheduler --policies='/etc/nbsynth/policies/*.yaml'

The schedule is set with scheduler.cron (default: every hour). A pass that is
still running when the next one is due delays it.
`,
			Args: cobra.NoArgs,
		}, schedulerFlags, runScheduler,
	)
}

var schedulerFlags = []commandLineFlag{policiesFlag}

func runScheduler(ctx *Context, _ []string) error {
	patterns, err := policyPatterns(ctx)
	if err != nil {
		return err
	}

	logger.Info(ctx, "Scheduler initialization",
		tag.String("policies", ctx.Config.Paths.Policies),
		tag.Dir(ctx.Config.Paths.StateDir),
		tag.String("cron", ctx.Config.Scheduler.Cron),
	)

	d, err := scheduler.NewDaemon(ctx.NewCoordinator(true), patterns)
	if err != nil {
		return fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	return nil
}
