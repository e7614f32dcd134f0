// Package argprep completes and checks the arguments proposed for an operation
// before the operation is executed.
//
// Required parameters that are absent or empty are filled from, in order,
// the preparer's global defaults, an explicit table of per-operation rules,
// and a placeholder shaped by the parameter's declared kind. Every present
// argument is then checked shallowly against its declared kind.
package argprep

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/i2y/indexpilot/schema"
)

// Well-known parameter names.
const (
	FieldApplicationID = "applicationId"
	FieldIndexName     = "indexName"
	FieldRequestBody   = "requestBody"
	FieldSearchParams  = "searchParams"
	FieldObjectID      = "objectID"
)

// DefaultIndexName is the fallback index name.
const DefaultIndexName = "default_index"

// Result is the outcome of preparing one argument set.
type Result struct {
	// Success is true iff MissingFields and Errors are both empty.
	Success bool
	// Arguments holds the supplied arguments plus every filled default.
	Arguments     map[string]any
	MissingFields []string
	Warnings      []string
	Errors        []string
}

// Rule fills one field for operations whose name contains Operation.
// Matching is case-insensitive.
type Rule struct {
	Operation string
	Field     string
	Value     func() any
}

// Matches reports whether the rule applies to field of operation.
func (r Rule) Matches(operation, field string) bool {
	return r.Field == field && strings.Contains(strings.ToLower(operation), strings.ToLower(r.Operation))
}

// DefaultRules is the built-in operation rule table. Earlier rules win.
var DefaultRules = []Rule{
	{Operation: "search", Field: FieldSearchParams, Value: func() any { return map[string]any{"query": ""} }},
	{Operation: "save", Field: FieldRequestBody, Value: func() any { return map[string]any{"data": "sample"} }},
	{Operation: "delete", Field: FieldObjectID, Value: func() any { return "sample_id" }},
	{Operation: "delete", Field: FieldRequestBody, Value: func() any { return []any{"sample_id"} }},
}

// Preparer fills and checks operation arguments.
// A Preparer is safe for concurrent use once constructed.
type Preparer struct {
	defaults map[string]any
	rules    []Rule
}

// Option configures a Preparer.
type Option func(*Preparer)

// WithDefault adds or replaces a global default.
func WithDefault(field string, value any) Option {
	return func(p *Preparer) {
		p.defaults[field] = value
	}
}

// WithDefaults replaces the global defaults.
func WithDefaults(defaults map[string]any) Option {
	return func(p *Preparer) {
		p.defaults = make(map[string]any, len(defaults))
		for k, v := range defaults {
			p.defaults[k] = v
		}
	}
}

// WithRules replaces the operation rule table.
func WithRules(rules ...Rule) Option {
	return func(p *Preparer) {
		p.rules = rules
	}
}

// New creates a Preparer whose global defaults pin the application id,
// the fallback index name and an empty request body.
func New(appID string, opts ...Option) *Preparer {
	p := &Preparer{
		defaults: map[string]any{
			FieldApplicationID: appID,
			FieldIndexName:     DefaultIndexName,
			FieldRequestBody:   map[string]any{},
		},
		rules: DefaultRules,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PrepareRaw parses raw as a parameter schema and prepares supplied against
// it. A malformed schema yields a failed result carrying the schema error.
func (p *Preparer) PrepareRaw(raw json.RawMessage, supplied map[string]any, operation string) Result {
	s, err := schema.Parse(raw)
	if err != nil {
		return schemaFailure(supplied, err)
	}
	return p.Prepare(s, supplied, operation)
}

// PrepareValue is PrepareRaw for an already decoded schema.
func (p *Preparer) PrepareValue(v any, supplied map[string]any, operation string) Result {
	s, err := schema.FromValue(v)
	if err != nil {
		return schemaFailure(supplied, err)
	}
	return p.Prepare(s, supplied, operation)
}

// Prepare fills required fields of s that are absent or empty in supplied
// and type-checks every declared argument. An untyped property is checked
// as a string; a type list or an unrecognized type accepts anything.
// The supplied map is not modified.
func (p *Preparer) Prepare(s *schema.Schema, supplied map[string]any, operation string) Result {
	res := Result{Arguments: copyArgs(supplied)}
	if s == nil {
		return schemaFailure(supplied, &schema.Error{Reason: "no schema"})
	}

	for _, field := range s.Required {
		if v, ok := res.Arguments[field]; ok && !isEmpty(v) {
			continue
		}
		if v, ok := p.defaultFor(field, s.Property(field), operation); ok {
			res.Arguments[field] = v
			res.Warnings = append(res.Warnings, fmt.Sprintf("auto-filled '%s'", field))
			continue
		}
		res.MissingFields = append(res.MissingFields, field)
	}

	names := make([]string, 0, len(res.Arguments))
	for name := range res.Arguments {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		prop := s.Property(name)
		if prop == nil {
			continue
		}
		kind := prop.ValueKind()
		if !TypeOK(res.Arguments[name], kind) {
			res.Errors = append(res.Errors, fmt.Sprintf("'%s' wrong type: expected %s, got %s",
				name, kind, describe(res.Arguments[name])))
		}
	}

	res.Success = len(res.MissingFields) == 0 && len(res.Errors) == 0
	return res
}

func (p *Preparer) defaultFor(field string, prop *schema.Property, operation string) (any, bool) {
	if v, ok := p.defaults[field]; ok {
		return cloneValue(v), true
	}
	for _, r := range p.rules {
		if r.Matches(operation, field) {
			return r.Value(), true
		}
	}

	switch prop.ValueKind() {
	case schema.KindString:
		return "sample_" + field, true
	case schema.KindInteger:
		return 0, true
	case schema.KindNumber:
		return 0.0, true
	case schema.KindBoolean:
		return false, true
	case schema.KindArray:
		return []any{}, true
	case schema.KindObject:
		return map[string]any{}, true
	default:
		return nil, false
	}
}

// TypeOK reports whether v satisfies kind. Booleans are never numbers and
// an integer must have no fractional part. KindUnknown accepts anything.
func TypeOK(v any, kind schema.Kind) bool {
	switch kind {
	case schema.KindString:
		_, ok := v.(string)
		return ok
	case schema.KindInteger:
		return isInteger(v)
	case schema.KindNumber:
		return isNumber(v)
	case schema.KindBoolean:
		_, ok := v.(bool)
		return ok
	case schema.KindArray:
		switch v.(type) {
		case []any, []string, []map[string]any, []int, []float64:
			return true
		}
		return false
	case schema.KindObject:
		_, ok := v.(map[string]any)
		return ok
	default:
		return true
	}
}

func isInteger(v any) bool {
	switch n := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float64:
		return !math.IsInf(n, 0) && n == math.Trunc(n)
	case float32:
		f := float64(n)
		return !math.IsInf(f, 0) && f == math.Trunc(f)
	case json.Number:
		_, err := n.Int64()
		return err == nil
	default:
		return false
	}
}

func isNumber(v any) bool {
	switch n := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	case json.Number:
		_, err := n.Float64()
		return err == nil
	default:
		return false
	}
}

// isEmpty reports whether v counts as not supplied.
func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	default:
		return false
	}
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case json.Number, float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func schemaFailure(supplied map[string]any, err error) Result {
	return Result{
		Arguments: copyArgs(supplied),
		Errors:    []string{err.Error()},
	}
}

func copyArgs(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// cloneValue copies default maps and slices so results never share them.
func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
