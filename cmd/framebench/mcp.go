package main

import (
	"github.com/spf13/cobra"

	"github.com/framebench/framebench/internal/mcp"
	"github.com/framebench/framebench/internal/storage"
)

// newMCPCmd builds the `mcp` command: stdio MCP server over the result
// store, for AI-agent access to benchmark data.
func newMCPCmd() *cobra.Command {
	var baseDir string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve benchmark results over MCP (stdio)",
		Long: `Run an MCP server on stdin/stdout exposing the local benchmark store:
list_games, get_runs, aggregate_runs, and analyze_log.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := baseDir
			if dir == "" {
				var err error
				dir, err = storage.DefaultBaseDir()
				if err != nil {
					return err
				}
			}
			server := mcp.NewServer(version, dir)
			return server.Start(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&baseDir, "output", "o", "", "Results directory (default ~/benchmark_results)")
	return cmd
}
