package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/i2y/indexpilot/record"
)

// TimestampLayout formats invocation timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// Invocation records one operation the assistant proposed during a turn,
// whether it was executed or rejected before execution.
type Invocation struct {
	// CallID is the correlation id of the proposed call.
	CallID string
	Name   string
	// Arguments are the arguments used, after default filling. For a
	// rejected call they are the arguments as proposed.
	Arguments map[string]any
	// Result is the serialized result of a successful call.
	Result string
	// Error describes why the call failed or was rejected.
	Error     string
	Success   bool
	Warnings  []string
	Timestamp time.Time
	Duration  time.Duration
}

// Time returns the timestamp in TimestampLayout.
func (i Invocation) Time() string {
	return i.Timestamp.Format(TimestampLayout)
}

// validationMessage renders a rejected preparation as tool-result text.
func validationMessage(name string, missing, errs []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "❌ %s: Missing required fields: [%s]", name, strings.Join(missing, ", "))
	for _, e := range errs {
		b.WriteString("\n• ")
		b.WriteString(e)
	}
	return b.String()
}

// Serialize encodes an operation result as tool-result content. A string
// that already holds a JSON document is used as is; every other value is
// sanitized and JSON encoded.
func Serialize(result any) (string, error) {
	if s, ok := result.(string); ok {
		trimmed := strings.TrimSpace(s)
		if trimmed != "" && json.Valid([]byte(trimmed)) {
			return trimmed, nil
		}
	}
	return encode(record.SanitizeValue(result))
}

// errorContent encodes a failure as {"error": msg}.
func errorContent(msg string) string {
	s, err := encode(map[string]any{"error": msg})
	if err != nil {
		return msg
	}
	return s
}

func encode(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("serializing result: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
