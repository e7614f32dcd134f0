package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/i2y/indexpilot/llm"
	"github.com/i2y/indexpilot/toolspec"
)

func newToolsCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools offered to the chat model",
		Long:  "tools connects to the MCP server and prints every tool in the function-calling format sent to the chat model.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup(cmd, flags, false)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			client, catalog, err := buildCatalog(ctx, e)
			if err != nil {
				return err
			}
			defer client.Close()
			return runTools(ctx, cmd.OutOrStdout(), e.styles, flags.JSON, catalog)
		},
	}
}

func functionSpecs(catalog *llm.ToolRegistry) []toolspec.FunctionSpec {
	all := catalog.All()
	specs := make([]toolspec.FunctionSpec, 0, len(all))
	for _, t := range all {
		specs = append(specs, toolspec.ConvertRaw(t.Name(), t.Description(), t.Parameters()))
	}
	return specs
}

func runTools(_ context.Context, out io.Writer, st styles, jsonOut bool, catalog *llm.ToolRegistry) error {
	specs := functionSpecs(catalog)
	if jsonOut {
		return writeJSON(out, specs)
	}
	fmt.Fprintln(out, st.header(fmt.Sprintf("%d tools", len(specs))))
	for _, s := range specs {
		fn := s.Function
		fmt.Fprintf(out, "%s\n  %s\n", st.render(st.Value, fn.Name), firstLine(fn.Description))
		if len(fn.Parameters.Required) > 0 {
			fmt.Fprintln(out, st.kv("required", strings.Join(fn.Parameters.Required, ", ")))
		}
	}
	return nil
}
