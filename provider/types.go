package provider

import "encoding/json"

// Request is one chat-completion call. The orchestrator sends two per
// turn: the first with the tool catalog, the final one without it. Nil
// sampling fields are left to the backend.
type Request struct {
	Model       string
	Messages    []Message
	Tools       []ToolDef
	ToolChoice  ToolChoice
	Temperature *float64
	MaxTokens   *int
	TopP        *float64
	Seed        *int
}

type ToolChoice string

const (
	// ToolChoiceAuto lets the model answer directly or ask for operations.
	ToolChoiceAuto     ToolChoice = "auto"
	ToolChoiceRequired ToolChoice = "required"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one conversation entry. Tool results carry the id of the
// call they answer in ToolID and the operation name in Name.
type Message struct {
	Role      Role
	Content   string
	ToolCalls []ToolCall
	ToolID    string
	Name      string
}

// ToolCall is an operation the model asked for. Arguments is the raw JSON
// text, which may be malformed or incomplete.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolDef is a catalog entry in the shape the backend expects. Parameters
// is an already simplified JSON Schema object.
type ToolDef struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

type Response struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason FinishReason
	Usage        Usage
}

type FinishReason string

const (
	FinishReasonStop      FinishReason = "stop"
	FinishReasonToolCalls FinishReason = "tool_calls"
	// FinishReasonLength means the reply hit max_tokens.
	FinishReasonLength FinishReason = "length"
)

// Usage counts tokens for one call. A turn sums both passes.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Add returns the sum of u and o.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
		TotalTokens:      u.TotalTokens + o.TotalTokens,
	}
}
