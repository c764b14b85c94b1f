package main

import (
	"confctl/cmd" // Import the cmd package which contains the CLI commands and execution logic
)

// main is the program entry point.
// It delegates to cmd.Execute() which handles command line argument parsing and execution.
//
// This design cleanly separates the CLI interface (cmd package) from main,
// allowing easier testing, extension, and reuse of the CLI commands.
//
// The confctl project is a personal configuration-management tool that:
//   - Discovers user-authored configuration definitions (one HCL file plus
//     arbitrary asset files per directory) under the user-configs directory
//   - Runs each selected definition's configure steps against the local
//     machine: shell commands, directory creation, template rendering with
//     optional symlink-through-cache, file copies, and asset downloads
//   - Selects variant behavior through a persisted machine identity
//     (target device class, machine id) plus free-form invocation flags
//   - Keeps a per-configuration cache directory so definition authors can
//     make their own runs idempotent (e.g. clone only if .git is absent)
//
// Error handling strategy:
//   - One broken definition never stops the others: discovery skips invalid
//     entries with a warning, and a failure inside one configuration is
//     recorded while the run continues with the next
//   - The process exits with a non-zero status if any attempted
//     configuration failed, so provisioning scripts still see the failure
func main() {
	cmd.Execute()
}
