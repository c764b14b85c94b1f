package logger

import (
	"github.com/fatih/color"
)

// Colorized printing functions for the different log levels. These are
// package-level variables holding functions that behave like fmt.Printf,
// but with text colored appropriately for the log level.

// Info logs informational messages in green color.
var Info = color.New(color.FgGreen).PrintfFunc()

// Warn logs warning messages in bright magenta color.
// Warnings are user-visible but never fatal: skipped directories during
// discovery, manual follow-up steps, skipped shell commands.
var Warn = color.New(color.FgHiMagenta).PrintfFunc()

// Error logs error messages in red color.
var Error = color.New(color.FgRed).PrintfFunc()

// Debug logs debug messages in cyan color when enabled, otherwise is a no-op.
// It defaults to a no-op so library-style callers (and tests) that never go
// through the CLI do not need to call Init first.
var Debug = func(format string, a ...any) {}

// Init enables or disables debug logging. When enabled, Debug prints
// messages in cyan; when disabled it is a no-op.
func Init(enableDebug bool) {
	if enableDebug {
		Debug = color.New(color.FgCyan).PrintfFunc()
	} else {
		Debug = func(format string, a ...any) {}
	}
}
