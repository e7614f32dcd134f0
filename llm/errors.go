package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderRequired means a call named no chat backend. Set one with
	// WithProvider (registry name, such as "azure") or WithClient.
	ErrProviderRequired = errors.New("provider is required: use WithProvider or WithClient option")

	// ErrModelRequired means a call named no model or Azure deployment.
	ErrModelRequired = errors.New("model is required: use WithModel option")
)

// ProviderError wraps a failed chat-completion call. The conversation
// orchestrator turns it into the apology reply shown to the user.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Cause      error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Cause)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// ToolError is a dashboard operation that ran and failed, such as an MCP
// call rejected by Algolia. Its text goes back to the model as the
// tool result.
type ToolError struct {
	ToolName string
	Cause    error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %q execution failed: %v", e.ToolName, e.Cause)
}

func (e *ToolError) Unwrap() error { return e.Cause }

// ToolNotFoundError is a call naming an operation missing from the catalog.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("tool not found: %q", e.Name)
}
