// Package record prepares searchable records for upload.
//
// Records are checked before they reach the index service: values that JSON
// cannot carry are replaced, every record is measured against the per-record
// size ceiling, and a batch is admitted only when every record fits.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Record is one unit of searchable data.
type Record = map[string]any

// IDField is the identifying field required by the index service.
const IDField = "objectID"

// Sentinels written in place of infinite floats.
const (
	PosInf = "Infinity"
	NegInf = "-Infinity"
)

// Sanitize returns a copy of r in which NaN becomes nil and infinities
// become the PosInf and NegInf sentinel strings, at any depth.
// Sanitize is idempotent.
func Sanitize(r Record) Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = sanitizeValue(v)
	}
	return out
}

// SanitizeValue is Sanitize for a single value of any shape.
func SanitizeValue(v any) any {
	return sanitizeValue(v)
}

func sanitizeValue(v any) any {
	switch val := v.(type) {
	case float64:
		return sanitizeFloat(val)
	case float32:
		return sanitizeFloat(float64(val))
	case map[string]any:
		return Sanitize(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = sanitizeValue(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Sanitize(item)
		}
		return out
	case []float64:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = sanitizeFloat(item)
		}
		return out
	default:
		return v
	}
}

func sanitizeFloat(f float64) any {
	switch {
	case math.IsNaN(f):
		return nil
	case math.IsInf(f, 1):
		return PosInf
	case math.IsInf(f, -1):
		return NegInf
	default:
		return f
	}
}

// Size returns the UTF-8 byte length of the sanitized record in compact JSON.
// Non-ASCII text is counted as literal UTF-8, not as escape sequences.
// On encoding failure Size returns 0 and the error.
func Size(r Record) (int, error) {
	b, err := Encode(Sanitize(r))
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

// Encode serializes r as compact JSON without HTML escaping and without a
// trailing newline.
func Encode(r Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
