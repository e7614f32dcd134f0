package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/i2y/indexpilot/mcp"
)

func newAppsCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "apps",
		Short: "List the applications the API key can access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup(cmd, flags, false)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return mcp.WithClient(ctx, e.cfg.MCPServer(), func(ctx context.Context, c *mcp.Client) error {
				apps, err := mcp.NewAlgolia(c, e.cfg.Algolia.AppID).Applications(ctx)
				if err != nil {
					return err
				}
				return printApps(cmd.OutOrStdout(), e.styles, flags.JSON, apps)
			}, mcp.WithTimeout(e.cfg.MCP.Timeout), mcp.WithLogger(e.logger))
		},
	}
}

func printApps(out io.Writer, st styles, jsonOut bool, apps []mcp.Application) error {
	if jsonOut {
		return writeJSON(out, apps)
	}
	if len(apps) == 0 {
		fmt.Fprintln(out, "No applications found")
		return nil
	}
	fmt.Fprintln(out, st.header("Applications"))
	for _, a := range apps {
		id := a.ID
		if id == "" {
			id = "-"
		}
		fmt.Fprintln(out, st.kv(id, a.Name))
	}
	return nil
}
