package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type commandLineFlag struct {
	name, shorthand, defaultValue, usage string
	isBool                               bool
	// viperKey binds the flag to a configuration key.
	viperKey string
}

var (
	configFlag = commandLineFlag{
		name:      "config",
		shorthand: "c",
		usage:     "config file (default is $HOME/.config/nbsynth/config.yaml)",
	}
	quietFlag = commandLineFlag{
		name:      "quiet",
		shorthand: "q",
		usage:     "suppress console output",
		isBool:    true,
	}
	stateDirFlag = commandLineFlag{
		name:     "state-dir",
		usage:    "directory holding the rotation state files",
		viperKey: "paths.state_dir",
	}
	logDirFlag = commandLineFlag{
		name:     "log-dir",
		usage:    "directory for the master and per-policy log files",
		viperKey: "paths.log_dir",
	}
	reportFlag = commandLineFlag{
		name:      "report",
		shorthand: "r",
		usage:     "print the rotation state of each policy and exit",
		isBool:    true,
	}
	forceFlag = commandLineFlag{
		name:      "force",
		shorthand: "f",
		usage:     "run a single full backup of the given type now (real or synth)",
	}
	setFlag = commandLineFlag{
		name:      "set",
		shorthand: "s",
		usage:     "set the number of synthetic fulls remaining before the next real full",
	}
	policiesFlag = commandLineFlag{
		name:      "policies",
		shorthand: "p",
		usage:     "policy files or glob evaluated by the scheduler",
		viperKey:  "paths.policies",
	}
)

// globalFlags are registered on every command.
var globalFlags = []commandLineFlag{configFlag, quietFlag, stateDirFlag, logDirFlag}

func initFlags(cmd *cobra.Command, flags ...commandLineFlag) {
	for _, flag := range slices.Concat(globalFlags, flags) {
		if flag.isBool {
			cmd.Flags().BoolP(flag.name, flag.shorthand, false, flag.usage)
			continue
		}
		cmd.Flags().StringP(flag.name, flag.shorthand, flag.defaultValue, flag.usage)
	}
}

// bindFlags binds the flags that override configuration keys to v.
func bindFlags(v *viper.Viper, cmd *cobra.Command, flags ...commandLineFlag) error {
	for _, flag := range slices.Concat(globalFlags, flags) {
		if flag.viperKey == "" {
			continue
		}
		if err := v.BindPFlag(flag.viperKey, cmd.Flags().Lookup(flag.name)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", flag.name, err)
		}
	}
	return nil
}
