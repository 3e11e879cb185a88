package cmd

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command of the mcphub CLI.
var rootCmd = &cobra.Command{
	Use:   "mcphub",
	Short: "An aggregating gateway for MCP tool servers",
	Long: `mcphub federates many independently-running MCP tool-provider servers
behind a single uniform interface, plus a bridge that exposes arbitrary
HTTP endpoints as MCP tools.

Clients list tools or invoke a named tool; the hub routes each call to
the correct upstream and returns a normalized result. Access is
partitioned by named groups that scope which servers and tools are
reachable.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI. The serve command reports its own failures (on
// stderr or in the log) before returning them; with SilenceErrors set,
// cobra prints nothing for flag or argument errors. The caller only maps
// the error to the exit code.
func Execute() error {
	return rootCmd.Execute()
}
