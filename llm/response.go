package llm

import "github.com/i2y/indexpilot/provider"

// Response wraps the provider response together with the conversation
// that produced it.
type Response struct {
	raw      *provider.Response
	messages []Message
}

// Text returns the text content of the response.
func (r Response) Text() string {
	if r.raw == nil {
		return ""
	}
	return r.raw.Content
}

// HasToolCalls returns true if the response contains tool calls.
func (r Response) HasToolCalls() bool {
	return r.raw != nil && len(r.raw.ToolCalls) > 0
}

// ToolCalls returns any tool calls proposed by the model, in order.
func (r Response) ToolCalls() []ToolCall {
	if r.raw == nil {
		return nil
	}
	return append([]ToolCall(nil), r.raw.ToolCalls...)
}

// Usage returns token usage statistics.
func (r Response) Usage() provider.Usage {
	if r.raw == nil {
		return provider.Usage{}
	}
	return r.raw.Usage
}

// FinishReason returns why the model stopped generating.
func (r Response) FinishReason() provider.FinishReason {
	if r.raw == nil {
		return ""
	}
	return r.raw.FinishReason
}

// Messages returns the request conversation followed by the assistant reply.
func (r Response) Messages() []Message {
	return r.messages
}
