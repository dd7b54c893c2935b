package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/nbsynth/nbsynth/internal/cmn/logger"
	"github.com/nbsynth/nbsynth/internal/cmn/logger/tag"
	"github.com/nbsynth/nbsynth/internal/cmn/stringutil"
	"github.com/nbsynth/nbsynth/internal/core"
	"github.com/nbsynth/nbsynth/internal/output"
	"github.com/nbsynth/nbsynth/internal/rotation"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func Run() *cobra.Command {
	c := NewCommand(
		&cobra.Command{
			Use:   "run [flags] [policy file or glob]...",
			Short: "Evaluate policies and run the due full backups",
			Long: `Evaluate each policy file and run a real or synthetic full backup when one is due.

Every policy file is handled by its own worker. Without arguments the files
matched by paths.policies are used.

Example:
  nbsynth run /etc/nbsynth/policies/*.yaml
  nbsynth run --report web.yaml
  nbsynth run --force synth web.yaml
  nbsynth run --set 2 web.yaml
`,
		}, runFlags, runPolicies,
	)
	c.MarkFlagsMutuallyExclusive(reportFlag.name, forceFlag.name, setFlag.name)
	return c
}

var runFlags = []commandLineFlag{reportFlag, forceFlag, setFlag}

func runPolicies(ctx *Context, args []string) error {
	patterns := args
	if len(patterns) == 0 {
		var err error
		if patterns, err = policyPatterns(ctx); err != nil {
			return err
		}
	}

	report, _ := ctx.Command.Flags().GetBool(reportFlag.name)
	if report {
		return runReport(ctx, patterns)
	}

	ov, err := parseOverride(ctx)
	if err != nil {
		return err
	}

	summary, err := ctx.NewCoordinator(true).Run(ctx, patterns, ov)
	if err != nil {
		return err
	}

	if !ctx.Quiet {
		renderer := output.NewRenderer(rendererConfig(ctx))
		_, _ = fmt.Fprintln(ctx.Command.OutOrStdout(), renderer.RenderSummary(summary.SummaryRows()))
	}

	code := summary.ExitCode()
	if err := summary.Err(); err != nil {
		if code == core.ExitOK {
			logger.Warn(ctx, "Some policies need attention", tag.RunID(summary.RunID), tag.Error(err))
			return nil
		}
		return &ExitError{Code: code, Err: err}
	}
	return nil
}

// runReport prints the state of every policy. It writes no log files, sends
// no alerts and changes no state.
func runReport(ctx *Context, patterns []string) error {
	rows, err := ctx.NewCoordinator(false).Report(ctx, patterns)
	if err != nil {
		return err
	}
	renderer := output.NewRenderer(rendererConfig(ctx))
	_, _ = fmt.Fprintln(ctx.Command.OutOrStdout(), renderer.RenderReport(rows))
	return nil
}

func parseOverride(ctx *Context) (rotation.Override, error) {
	flags := ctx.Command.Flags()

	if force, _ := flags.GetString(forceFlag.name); stringutil.RemoveQuotes(force) != "" {
		kind, err := core.ParseBackupKind(stringutil.RemoveQuotes(force))
		if err != nil {
			return rotation.NoOverride, err
		}
		return rotation.ForceRun(kind), nil
	}

	if flags.Changed(setFlag.name) {
		value, _ := flags.GetString(setFlag.name)
		n, err := strconv.Atoi(stringutil.RemoveQuotes(value))
		if err != nil {
			return rotation.NoOverride, fmt.Errorf("%w: --set expects a number, got %q", core.ErrConfig, value)
		}
		ov := rotation.SetRemaining(n)
		if err := ov.Validate(); err != nil {
			return rotation.NoOverride, err
		}
		return ov, nil
	}

	return rotation.NoOverride, nil
}

func rendererConfig(ctx *Context) output.Config {
	color := false
	if f, ok := ctx.Command.OutOrStdout().(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	return output.Config{
		ColorEnabled: color,
		Location:     ctx.Config.Core.Location,
	}
}

var errNoPolicies = errors.New("no policy files given and paths.policies is empty")

// policyPatterns is the pattern list the scheduler evaluates.
func policyPatterns(ctx *Context) ([]string, error) {
	if ctx.Config.Paths.Policies == "" {
		return nil, fmt.Errorf("%w: %w", core.ErrConfig, errNoPolicies)
	}
	return []string{ctx.Config.Paths.Policies}, nil
}
