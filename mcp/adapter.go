package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/i2y/indexpilot/llm"
)

// Tools returns the server's operations as llm tools, in the order the
// server advertises them.
//
// Example:
//
//	tools, err := client.Tools(ctx)
//	if err != nil {
//	    return err
//	}
//
//	resp, err := llm.Call(ctx, "List my indices",
//	    llm.WithProvider("azure"),
//	    llm.WithModel("gpt-4o"),
//	    llm.WithTools(tools...),
//	)
func (c *Client) Tools(ctx context.Context) ([]llm.Tool, error) {
	listed, err := c.ListTools(ctx)
	if err != nil {
		return nil, err
	}

	tools := make([]llm.Tool, 0, len(listed))
	for _, t := range listed {
		if t == nil || t.Name == "" {
			continue
		}
		tools = append(tools, &toolWrapper{
			client: c,
			tool:   t,
		})
	}
	return tools, nil
}

// toolWrapper wraps a remote operation to implement llm.Tool.
type toolWrapper struct {
	client *Client
	tool   *mcp.Tool
}

func (t *toolWrapper) Name() string {
	return t.tool.Name
}

func (t *toolWrapper) Description() string {
	return t.tool.Description
}

// Parameters returns the advertised input schema as raw JSON. A schema that
// cannot be encoded degrades to an empty object schema.
func (t *toolWrapper) Parameters() json.RawMessage {
	if t.tool.InputSchema == nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	raw, err := json.Marshal(t.tool.InputSchema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return raw
}

// Execute calls the remote operation. A result the server flagged as an
// error is returned as a Go error carrying the server's text.
func (t *toolWrapper) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	arguments := map[string]any{}
	if len(args) > 0 && string(args) != "null" {
		if err := json.Unmarshal(args, &arguments); err != nil {
			return nil, fmt.Errorf("parsing arguments: %w", err)
		}
	}

	res, err := t.client.CallTool(ctx, t.tool.Name, arguments)
	if err != nil {
		return nil, err
	}
	if res.IsError {
		return nil, fmt.Errorf("MCP tool error: %s", res.Text())
	}
	return res.Text(), nil
}

// contentParts extracts one string per content item.
// Non-text content is represented as descriptive text.
func contentParts(content []mcp.Content) []string {
	parts := make([]string, 0, len(content))
	for _, c := range content {
		switch item := c.(type) {
		case *mcp.TextContent:
			parts = append(parts, item.Text)
		case *mcp.ImageContent:
			parts = append(parts, fmt.Sprintf("[Image: %s, %d bytes]", item.MIMEType, len(item.Data)))
		case *mcp.EmbeddedResource:
			if item.Resource != nil {
				parts = append(parts, fmt.Sprintf("[Resource: %s]", item.Resource.URI))
			} else {
				parts = append(parts, "[Resource: embedded]")
			}
		}
	}
	return parts
}

func joinParts(parts []string) string {
	return strings.Join(parts, "\n")
}

// ToolsFromServer connects to server and returns its tools together with a
// cleanup function that closes the connection.
//
// Example:
//
//	tools, cleanup, err := mcp.ToolsFromServer(ctx, mcp.AlgoliaServer(cfg))
//	if err != nil {
//	    return err
//	}
//	defer cleanup()
func ToolsFromServer(ctx context.Context, server Server, opts ...Option) ([]llm.Tool, func() error, error) {
	c := New(server, opts...)
	if err := c.Connect(ctx); err != nil {
		return nil, nil, err
	}

	tools, err := c.Tools(ctx)
	if err != nil {
		_ = c.Close()
		return nil, nil, err
	}
	return tools, c.Close, nil
}
