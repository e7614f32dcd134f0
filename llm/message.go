package llm

import "github.com/i2y/indexpilot/provider"

// The conversation types are shared with providers so a turn's working
// history goes to the backend without conversion.
type (
	Message  = provider.Message
	Role     = provider.Role
	ToolCall = provider.ToolCall
)

const (
	RoleSystem    = provider.RoleSystem
	RoleUser      = provider.RoleUser
	RoleAssistant = provider.RoleAssistant
	RoleTool      = provider.RoleTool
)

// SystemMessage holds the dashboard assistant prompt. It is always the
// first entry of a conversation.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// AssistantMessageWithToolCalls records the operations the model asked
// for. calls is copied so later edits by the caller do not leak into the
// conversation.
func AssistantMessageWithToolCalls(content string, calls []ToolCall) Message {
	return Message{
		Role:      RoleAssistant,
		Content:   content,
		ToolCalls: append([]ToolCall(nil), calls...),
	}
}

// ToolMessage answers the call with id callID. content is the serialized
// operation result or an {"error": ...} object.
func ToolMessage(callID, name, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolID: callID, Name: name}
}
