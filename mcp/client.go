// Package mcp connects to a Model Context Protocol tool server running as a
// subprocess and exposes its operations as llm tools.
//
// A Client owns exactly one channel. Its lifecycle is
//
//	Disconnected -> Connecting -> Ready -> Closing -> Disconnected
//
// Close is idempotent and never fails the caller; teardown problems are
// logged as warnings and the client is reset to Disconnected regardless.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

// State is the lifecycle state of a Client.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateReady
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateClosing:
		return "closing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrNotConnected is returned by operations that need a Ready client.
	ErrNotConnected = errors.New("mcp: client is not connected")

	// ErrBusy is returned by Connect when the client is not Disconnected.
	ErrBusy = errors.New("mcp: client is already connecting or connected")
)

// Server describes how to launch a tool server subprocess.
type Server struct {
	Command string
	Args    []string
	// Dir is the working directory of the subprocess.
	Dir string
	// Env is added to the parent environment.
	Env map[string]string
}

func (s Server) command() *exec.Cmd {
	cmd := exec.Command(s.Command, s.Args...)
	cmd.Dir = s.Dir
	if len(s.Env) > 0 {
		keys := make([]string, 0, len(s.Env))
		for k := range s.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		cmd.Env = os.Environ()
		for _, k := range keys {
			cmd.Env = append(cmd.Env, k+"="+s.Env[k])
		}
	}
	return cmd
}

// Client wraps an MCP client session.
type Client struct {
	server    Server
	timeout   time.Duration
	logger    zerolog.Logger
	transport mcp.Transport

	mu      sync.Mutex
	state   State
	session *mcp.ClientSession
	cmd     *exec.Cmd

	// callMu keeps a single outstanding request on the channel.
	callMu sync.Mutex
}

// Option configures the MCP client.
type Option func(*Client)

// WithTimeout sets the timeout for a single tool call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger for lifecycle events.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithTransport connects over t instead of launching the server command.
func WithTransport(t mcp.Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// New creates a disconnected client for server.
func New(server Server, opts ...Option) *Client {
	c := &Client{
		server:  server,
		timeout: 30 * time.Second,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewStdioClient creates a client for command and connects it.
//
// Example:
//
//	client, err := mcp.NewStdioClient(ctx, "node", []string{"src/app.ts"})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	tools, err := client.Tools(ctx)
func NewStdioClient(ctx context.Context, command string, args []string, opts ...Option) (*Client, error) {
	c := New(Server{Command: command, Args: args}, opts...)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect launches the server and performs the protocol handshake.
// On failure the subprocess, if it was started, is killed and the client
// returns to Disconnected.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return ErrBusy
	}
	c.state = StateConnecting
	c.mu.Unlock()

	transport := c.transport
	var cmd *exec.Cmd
	if transport == nil {
		cmd = c.server.command()
		transport = &mcp.CommandTransport{Command: cmd}
	}

	impl := mcp.NewClient(&mcp.Implementation{
		Name:    "indexpilot",
		Version: "0.1.0",
	}, nil)

	start := time.Now()
	session, err := impl.Connect(ctx, transport, nil)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if cmd != nil && cmd.Process != nil {
			if killErr := cmd.Process.Kill(); killErr != nil && !errors.Is(killErr, os.ErrProcessDone) {
				c.logger.Warn().Err(killErr).Msg("mcp: killing server after failed connect")
			}
		}
		c.state = StateDisconnected
		return fmt.Errorf("connecting to MCP server: %w", err)
	}

	c.session = session
	c.cmd = cmd
	c.state = StateReady
	c.logger.Info().
		Str("command", c.server.Command).
		Dur("elapsed", time.Since(start)).
		Msg("mcp: connected")
	return nil
}

// Close tears the channel down. It is safe to call in any state and more
// than once. It always returns nil; failures are logged as warnings.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		return nil
	}
	c.state = StateClosing
	session, cmd := c.session, c.cmd
	c.mu.Unlock()

	// Wait for an in-flight call to drain before closing the channel.
	c.callMu.Lock()
	defer c.callMu.Unlock()

	if err := session.Close(); err != nil {
		c.logger.Warn().Err(err).Msg("mcp: closing session")
	}
	if cmd != nil && cmd.Process != nil && cmd.ProcessState == nil {
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			c.logger.Warn().Err(err).Msg("mcp: killing server")
		}
	}

	c.mu.Lock()
	c.session = nil
	c.cmd = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	c.logger.Info().Msg("mcp: disconnected")
	return nil
}

// WithClient connects a client for server, runs fn, and closes the client
// on every exit path, including a failed connect and a panic in fn.
func WithClient(ctx context.Context, server Server, fn func(ctx context.Context, c *Client) error, opts ...Option) error {
	c := New(server, opts...)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer func() { _ = c.Close() }()
	return fn(ctx, c)
}

// readySession returns the session when the client is Ready.
func (c *Client) readySession() (*mcp.ClientSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady || c.session == nil {
		return nil, ErrNotConnected
	}
	return c.session, nil
}

// ListTools returns the operations advertised by the server.
func (c *Client) ListTools(ctx context.Context) ([]*mcp.Tool, error) {
	c.callMu.Lock()
	defer c.callMu.Unlock()

	session, err := c.readySession()
	if err != nil {
		return nil, err
	}
	result, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return nil, fmt.Errorf("listing MCP tools: %w", err)
	}
	return result.Tools, nil
}

// Result is the outcome of one tool call.
type Result struct {
	// Parts holds one entry per content item: the text of text items and a
	// description of anything else.
	Parts   []string
	IsError bool
}

// Text joins the parts with newlines.
func (r *Result) Text() string {
	return joinParts(r.Parts)
}

// CallTool invokes the named operation. A protocol or transport failure is
// returned as an error; an operation that ran and reported failure yields a
// Result with IsError set.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*Result, error) {
	c.callMu.Lock()
	defer c.callMu.Unlock()

	session, err := c.readySession()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("tool", name).Dur("elapsed", time.Since(start)).Msg("mcp: call failed")
		return nil, fmt.Errorf("calling MCP tool %s: %w", name, err)
	}

	c.logger.Debug().
		Str("tool", name).
		Bool("is_error", res.IsError).
		Dur("elapsed", time.Since(start)).
		Msg("mcp: call completed")

	return &Result{Parts: contentParts(res.Content), IsError: res.IsError}, nil
}
