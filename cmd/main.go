package main

import (
	"os"

	"github.com/nbsynth/nbsynth/internal/cmd"
	"github.com/nbsynth/nbsynth/internal/cmn/config"
	"github.com/nbsynth/nbsynth/internal/core"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   config.AppSlug,
	Short: "NetBackup synthetic full backup rotation scheduler",
	Long: `nbsynth decides, for each NetBackup policy and client, whether a real full,
a synthetic full or nothing should run, and runs it.

Real fulls are taken periodically; in between, synthetic fulls are built on
the NetBackup server from the last full and the incrementals. Consecutive
failures stop scheduled runs until an operator intervenes.
`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(core.ExitError)
	}
}

func init() {
	rootCmd.AddCommand(cmd.Run())
	rootCmd.AddCommand(cmd.Scheduler())
	rootCmd.AddCommand(cmd.Version())

	config.Version = version
}

var version = "0.0.0"
