// Package provider defines the interface for chat-completion providers.
package provider

import "context"

// Provider is the core abstraction for chat-completion providers.
// All provider implementations must satisfy this interface.
type Provider interface {
	// Name returns the provider identifier (e.g., "openai", "azure").
	Name() string

	// Call executes a chat-completion request.
	Call(ctx context.Context, req *Request) (*Response, error)
}
