package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/i2y/indexpilot/algolia"
)

func newIndicesCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "indices",
		Short: "List the indices of the application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup(cmd, flags, false)
			if err != nil {
				return err
			}
			client, err := e.cfg.AlgoliaClient()
			if err != nil {
				return err
			}
			return runIndices(cmd.Context(), cmd.OutOrStdout(), e.styles, flags.JSON, client)
		},
	}
}

func runIndices(ctx context.Context, out io.Writer, st styles, jsonOut bool, c *algolia.Client) error {
	indices, err := c.ListIndices(ctx)
	if err != nil {
		return err
	}
	if jsonOut {
		return writeJSON(out, indices)
	}
	if len(indices) == 0 {
		fmt.Fprintln(out, "No indices found in application", c.AppID())
		return nil
	}
	fmt.Fprintln(out, st.header(fmt.Sprintf("Indices of %s", c.AppID())))
	for _, idx := range indices {
		fmt.Fprintln(out, st.kv(idx.Name, fmt.Sprintf("%d records, updated %s", idx.Entries, idx.UpdatedAt)))
	}
	return nil
}

func newStatsCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats INDEX",
		Short: "Show the record count of an index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, flags, false)
			if err != nil {
				return err
			}
			client, err := e.cfg.AlgoliaClient()
			if err != nil {
				return err
			}
			return runStats(cmd.Context(), cmd.OutOrStdout(), e.styles, flags.JSON, client, args[0])
		},
	}
}

type indexStats struct {
	Index   string `json:"index"`
	Exists  bool   `json:"exists"`
	Records int    `json:"records"`
}

func runStats(ctx context.Context, out io.Writer, st styles, jsonOut bool, c *algolia.Client, index string) error {
	n, err := c.Count(ctx, index)
	if err != nil {
		return err
	}
	stats := indexStats{Index: index, Exists: n >= 0, Records: max(n, 0)}
	if jsonOut {
		return writeJSON(out, stats)
	}
	if !stats.Exists {
		fmt.Fprintln(out, st.warn(fmt.Sprintf("index %s does not exist", index)))
		return nil
	}
	fmt.Fprintln(out, st.header(index))
	fmt.Fprintln(out, st.kv("records", strconv.Itoa(stats.Records)))
	return nil
}
