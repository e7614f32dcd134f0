package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/i2y/indexpilot/argprep"
	"github.com/i2y/indexpilot/chat"
	"github.com/i2y/indexpilot/history"
	"github.com/i2y/indexpilot/llm"
	"github.com/i2y/indexpilot/mcp"
	"github.com/i2y/indexpilot/prompt"
	"github.com/i2y/indexpilot/tools"
)

func newChatCmd(flags *GlobalFlags) *cobra.Command {
	var appID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session with the Algolia assistant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup(cmd, flags, true)
			if err != nil {
				return err
			}
			if appID != "" {
				e.cfg.Algolia.AppID = appID
			}
			return runChat(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), e)
		},
	}
	cmd.Flags().StringVar(&appID, "app", "", "application id to work on (default from config)")
	return cmd
}

func runChat(ctx context.Context, in io.Reader, out io.Writer, e *env) error {
	client, catalog, err := buildCatalog(ctx, e)
	if err != nil {
		return err
	}
	defer client.Close()

	p, err := prompt.Load(e.cfg.PromptFile, e.cfg.Algolia.AppID)
	if err != nil {
		return err
	}
	if p.FilePath == "" {
		e.logger.Warn().Str("file", e.cfg.PromptFile).Msg("system prompt file not found, using the built-in prompt")
	}

	modelName := e.cfg.LLM.Model
	if p.Model != "" {
		modelName = p.Model
	}
	first, final := e.cfg.LLM.Temperature, e.cfg.LLM.FinalTemperature
	if p.Temperature != nil {
		first = *p.Temperature
	}
	if p.FinalTemperature != nil {
		final = *p.FinalTemperature
	}

	callOpts := e.cfg.CallOptions()
	if p.MaxTokens != nil {
		callOpts = append(callOpts, llm.WithMaxTokens(*p.MaxTokens))
	}

	opts := []chat.Option{
		chat.WithTemperatures(first, final),
		chat.WithCallOptions(callOpts...),
		chat.WithLogger(e.logger),
	}
	if e.cfg.History != "" {
		store := history.NewSQLiteStore(e.cfg.History)
		if err := store.Init(ctx); err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, chat.WithRecorder(store))
	}

	model := llm.NewModel(e.cfg.LLM.Provider, modelName, llm.WithSettings(e.cfg.ProviderSettings()))
	session, err := chat.New(model, catalog, argprep.New(e.cfg.Algolia.AppID), p.Text, opts...)
	if err != nil {
		return err
	}

	e.logger.Info().Str("session", session.ID()).Str("model", modelName).Int("tools", catalog.Len()).Msg("chat session started")
	return repl(ctx, in, out, session, e.styles)
}

// buildCatalog connects to the MCP server and returns its tools followed by
// the local data tools. The caller closes the client.
func buildCatalog(ctx context.Context, e *env) (*mcp.Client, *llm.ToolRegistry, error) {
	client := mcp.New(e.cfg.MCPServer(), mcp.WithTimeout(e.cfg.MCP.Timeout), mcp.WithLogger(e.logger))
	if err := client.Connect(ctx); err != nil {
		return nil, nil, err
	}

	remote, err := client.Tools(ctx)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	algoliaClient, err := e.cfg.AlgoliaClient()
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	kit := tools.New(algoliaClient,
		tools.WithRoot(e.cfg.Upload.DataDir),
		tools.WithLimit(e.cfg.Upload.RecordLimit),
		tools.WithUploadOptions(e.cfg.UploadOptions()...),
		tools.WithLogger(e.logger),
	)

	catalog := llm.NewToolRegistry(remote...)
	catalog.Register(kit.Tools()...)
	return client, catalog, nil
}

// turner is the part of a chat session the REPL drives.
type turner interface {
	Turn(ctx context.Context, message string) (chat.TurnResult, error)
	Reset()
}

const maxLineSize = 1 << 20

func repl(ctx context.Context, in io.Reader, out io.Writer, s turner, st styles) error {
	fmt.Fprintln(out, st.header("Algolia assistant"))
	fmt.Fprintln(out, st.render(st.Dim, `Type "/reset" to start over, "exit" to quit.`))

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for {
		fmt.Fprint(out, st.render(st.Prompt, "you> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit", "/exit", "/quit":
			return nil
		case "/reset", "clear", "/clear":
			s.Reset()
			fmt.Fprintln(out, st.render(st.Dim, "Conversation cleared."))
			continue
		}

		res, err := s.Turn(ctx, line)
		for _, inv := range res.Invocations {
			fmt.Fprint(out, st.invocation(inv))
		}
		if err != nil && errors.Is(err, context.Canceled) {
			return nil
		}
		fmt.Fprintf(out, "%s %s\n\n", st.header("assistant>"), res.Reply)
	}
}
