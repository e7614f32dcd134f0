// Package cli implements the indexpilot command line.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/i2y/indexpilot/config"
)

// GlobalFlags holds flags shared by every command.
type GlobalFlags struct {
	ConfigPath string
	Verbose    bool
	JSON       bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	flags := &GlobalFlags{}

	root := &cobra.Command{
		Use:           "indexpilot",
		Short:         "Chat with your Algolia application and upload records",
		Long:          "indexpilot drives the Algolia MCP server from a chat model and uploads local data files to Algolia indices.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "config file path (default: "+config.DefaultConfigFile+" if present)")
	root.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&flags.JSON, "json", false, "emit JSON instead of text")

	root.AddCommand(
		newChatCmd(flags),
		newUploadCmd(flags),
		newIndicesCmd(flags),
		newStatsCmd(flags),
		newToolsCmd(flags),
		newAppsCmd(flags),
	)
	return root
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// env bundles what a command needs after startup.
type env struct {
	cfg    *config.Config
	logger zerolog.Logger
	styles styles
}

func setup(cmd *cobra.Command, flags *GlobalFlags, forChat bool) (*env, error) {
	cfg, err := config.Load(config.Options{ConfigPath: flags.ConfigPath, SkipValidate: true})
	if err != nil {
		return nil, err
	}
	if forChat {
		err = cfg.ValidateChat()
	} else {
		err = cfg.Validate()
	}
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if flags.Verbose {
		level = zerolog.DebugLevel.String()
	}
	return &env{
		cfg:    cfg,
		logger: newLogger(cmd.ErrOrStderr(), level),
		styles: newStyles(cmd.OutOrStdout(), flags.JSON),
	}, nil
}

// newLogger writes human-readable logs to w, colored on a terminal.
func newLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{Out: w, NoColor: !isTerminal(w), TimeFormat: "15:04:05"}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
