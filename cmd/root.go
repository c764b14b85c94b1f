package cmd

import (
	"os"

	"confctl/internal/logger"

	"github.com/spf13/cobra"
)

// version is the CLI version reported by `confctl --version`.
// Overridden at build time via -ldflags "-X confctl/cmd.version=...".
var version = "0.3.0"

// debug flag indicates whether debug logging should be enabled.
// It can be toggled via the `--debug` command-line flag.
var debug bool

// rootCmd is the base command for the CLI tool `confctl`.
// It sets up the root-level CLI structure and provides global flags.
var rootCmd = &cobra.Command{
	Use:     "confctl",
	Short:   "Personal configuration management tool",
	Version: version,

	// A failed configuration run already reports its own errors; suppress
	// the usage dump cobra would otherwise print after them.
	SilenceUsage: true,

	// PersistentPreRun is a hook that runs before any subcommand.
	// Here, we initialize the logger based on the debug flag.
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(debug)
	},
}

// Execute initializes flags, registers subcommands, and starts the command
// execution. It's the entry point for the CLI when invoked by the user.
// The process exits non-zero when the invoked command reports an error,
// which includes runs where any configuration failed.
func Execute() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(configureCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
