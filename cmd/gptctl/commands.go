package main

// commands.go wires gptctl's single root command. Unlike the teacher's
// multi-command tree (cmd/vorteil/cli.go), gptctl's whole surface is one
// ordered argument sequence (spec.md §6), so DisableFlagParsing hands raw
// argv straight to runSequence instead of letting cobra/pflag parse it.

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gptctl/gptctl/pkg/elog"
)

var log elog.Logger

var (
	flagVerbose bool
	flagDebug   bool
	flagNoColor bool
)

var rootCmd = &cobra.Command{
	Use:                "gptctl [device] [commands...]",
	Short:              "Raw GPT and protective MBR editor",
	Long:               `gptctl reads and rewrites GUID partition tables directly, block by block, with no filesystem awareness.`,
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		args = stripGlobalFlags(args)
		return runSequence(log, args)
	},
}

// stripGlobalFlags extracts --verbose/--debug/--no-color from anywhere in the argument list
// before the device/command sequence is handed to runSequence, since
// DisableFlagParsing means cobra never touches them.
func stripGlobalFlags(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		switch a {
		case "--verbose":
			flagVerbose = true
		case "--debug":
			flagDebug = true
		case "--no-color":
			flagNoColor = true
		default:
			out = append(out, a)
		}
	}
	return out
}

func commandInit() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		stripGlobalFlags(args) // sets the flag variables before the logger is built
		cli := &elog.CLI{IsDebug: flagDebug, IsVerbose: flagVerbose || flagDebug, DisableColors: flagNoColor}
		logrus.SetFormatter(cli)
		logrus.SetLevel(logrus.TraceLevel)
		log = cli
		return nil
	}
}
