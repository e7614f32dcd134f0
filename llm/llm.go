// Package llm provides the main API for making chat-completion calls.
package llm

import (
	"context"
	"fmt"

	"github.com/i2y/indexpilot/provider"
)

// Call makes a single-prompt call.
//
// Example:
//
//	resp, err := llm.Call(ctx, "Summarize my index settings",
//	    llm.WithProvider("azure"),
//	    llm.WithModel("gpt-4o"),
//	)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(resp.Text())
func Call(ctx context.Context, prompt string, opts ...Option) (Response, error) {
	cfg := newCallConfig()
	cfg.apply(opts...)

	req, err := cfg.buildRequest(prompt)
	if err != nil {
		return Response{}, err
	}
	return cfg.call(ctx, req)
}

// CallMessages makes a call with a full message history.
// This is useful for multi-turn conversations.
//
// Example:
//
//	messages := []llm.Message{
//	    llm.SystemMessage("You manage Algolia indices."),
//	    llm.UserMessage("Which indices do I have?"),
//	}
//
//	resp, err := llm.CallMessages(ctx, messages,
//	    llm.WithProvider("azure"),
//	    llm.WithModel("gpt-4o"),
//	    llm.WithTools(tools...),
//	    llm.WithToolChoice(provider.ToolChoiceAuto),
//	)
func CallMessages(ctx context.Context, messages []Message, opts ...Option) (Response, error) {
	cfg := newCallConfig()
	cfg.apply(opts...)

	req, err := cfg.buildRequestFromMessages(messages)
	if err != nil {
		return Response{}, err
	}
	return cfg.call(ctx, req)
}

// call validates the configuration, resolves the provider and runs req.
func (c *callConfig) call(ctx context.Context, req *provider.Request) (Response, error) {
	if c.client == nil && c.providerName == "" {
		return Response{}, ErrProviderRequired
	}
	if c.model == "" {
		return Response{}, ErrModelRequired
	}

	p := c.client
	if p == nil {
		var err error
		p, err = provider.Get(c.providerName, c.settings)
		if err != nil {
			return Response{}, fmt.Errorf("getting provider: %w", err)
		}
	}

	resp, err := p.Call(ctx, req)
	if err != nil {
		return Response{}, &ProviderError{Provider: p.Name(), Message: "call failed", Cause: err}
	}

	return Response{raw: resp, messages: buildMessagesFromRequest(req, resp)}, nil
}

// buildMessagesFromRequest creates the full message history from request and response.
func buildMessagesFromRequest(req *provider.Request, resp *provider.Response) []Message {
	messages := make([]Message, 0, len(req.Messages)+1)
	messages = append(messages, req.Messages...)

	if len(resp.ToolCalls) > 0 {
		messages = append(messages, AssistantMessageWithToolCalls(resp.Content, resp.ToolCalls))
	} else {
		messages = append(messages, AssistantMessage(resp.Content))
	}

	return messages
}
