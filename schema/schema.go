// Package schema models the parameter schema of a callable operation.
//
// Schemas arrive either as raw JSON Schema documents advertised by a remote
// tool catalog or are reflected from Go types. Both end up as a Schema: a
// closed set of property kinds with recursive element and member shapes.
package schema

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/invopop/jsonschema"
)

// Kind is the declared primitive kind of a parameter.
type Kind string

// Kinds understood by the argument preparer and the schema adapter.
const (
	KindString  Kind = "string"
	KindInteger Kind = "integer"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
	KindUnknown Kind = ""
)

// ParseKind maps a JSON Schema type name to a Kind.
// Unrecognized names map to KindUnknown.
func ParseKind(name string) Kind {
	switch k := Kind(name); k {
	case KindString, KindInteger, KindNumber, KindBoolean, KindArray, KindObject:
		return k
	default:
		return KindUnknown
	}
}

// PassthroughKeys are constraint keys copied verbatim into adapted schemas.
var PassthroughKeys = []string{"minimum", "maximum", "minLength", "maxLength", "pattern", "enum", "example"}

// Property describes one named parameter.
type Property struct {
	Name string
	// Type is the declared type name, the first entry when a list was
	// declared. Empty when the schema declared no type.
	Type string
	// TypeList holds every entry of a type declared as a list, such as
	// ["string", "null"]. Nil for a single type name.
	TypeList    []string
	Description string
	// Items is the element shape of an array property.
	Items *Property
	// Properties holds the members of an object property.
	Properties map[string]*Property
	// Constraints holds the passthrough keys present on the property.
	Constraints map[string]any
	// Shaped is false when the declaration was not a JSON object.
	Shaped bool
}

// Kind returns the declared kind, or KindUnknown.
func (p *Property) Kind() Kind {
	if p == nil {
		return KindUnknown
	}
	return ParseKind(p.Type)
}

// HasType reports whether a type was declared.
func (p *Property) HasType() bool {
	return p != nil && p.Type != ""
}

// ValueKind is the kind a supplied value must satisfy. An absent type
// counts as a string; a type list is a union and yields KindUnknown.
func (p *Property) ValueKind() Kind {
	switch {
	case p == nil || (!p.HasType() && p.TypeList == nil):
		return KindString
	case p.TypeList != nil:
		return KindUnknown
	default:
		return p.Kind()
	}
}

// Schema is the parameter schema of one operation.
type Schema struct {
	Properties map[string]*Property
	Required   []string
}

// Property returns the named property or nil.
func (s *Schema) Property(name string) *Property {
	if s == nil {
		return nil
	}
	return s.Properties[name]
}

// Names returns the property names in sorted order.
func (s *Schema) Names() []string {
	if s == nil {
		return nil
	}
	return sortedKeys(s.Properties)
}

// Error reports a malformed schema.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return "invalid schema: " + e.Reason
}

// Parse decodes a raw JSON Schema document.
// An empty document yields an empty schema.
func Parse(raw json.RawMessage) (*Schema, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return &Schema{Properties: map[string]*Property{}}, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, &Error{Reason: fmt.Sprintf("not valid JSON: %v", err)}
	}
	return FromValue(v)
}

// FromValue builds a Schema from a decoded JSON value.
func FromValue(v any) (*Schema, error) {
	if v == nil {
		return &Schema{Properties: map[string]*Property{}}, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &Error{Reason: fmt.Sprintf("schema is %T, not an object", v)}
	}
	return FromMap(m)
}

// FromMap builds a Schema from a decoded JSON object.
// Required names that are not declared properties are a schema error.
func FromMap(m map[string]any) (*Schema, error) {
	s := &Schema{Properties: map[string]*Property{}}

	if rawProps, ok := m["properties"]; ok && rawProps != nil {
		props, ok := rawProps.(map[string]any)
		if !ok {
			return nil, &Error{Reason: "properties is not an object"}
		}
		s.Properties = parseProperties(props)
	}

	if rawReq, ok := m["required"]; ok && rawReq != nil {
		list, ok := rawReq.([]any)
		if !ok {
			return nil, &Error{Reason: "required is not a list"}
		}
		for _, item := range list {
			name, ok := item.(string)
			if !ok {
				return nil, &Error{Reason: fmt.Sprintf("required entry %v is not a string", item)}
			}
			if _, declared := s.Properties[name]; !declared {
				return nil, &Error{Reason: fmt.Sprintf("required field %q is not a declared property", name)}
			}
			s.Required = append(s.Required, name)
		}
	}

	return s, nil
}

// Lenient decodes raw like Parse but drops malformed parts instead of
// failing. Required names are kept as declared, even when undeclared.
func Lenient(raw json.RawMessage) *Schema {
	s := &Schema{Properties: map[string]*Property{}}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return s
	}
	if props, ok := m["properties"].(map[string]any); ok {
		s.Properties = parseProperties(props)
	}
	if list, ok := m["required"].([]any); ok {
		for _, item := range list {
			if name, ok := item.(string); ok {
				s.Required = append(s.Required, name)
			}
		}
	}
	return s
}

func parseProperties(props map[string]any) map[string]*Property {
	out := make(map[string]*Property, len(props))
	for name, decl := range props {
		out[name] = parseProperty(name, decl)
	}
	return out
}

func parseProperty(name string, decl any) *Property {
	p := &Property{Name: name}
	m, ok := decl.(map[string]any)
	if !ok {
		return p
	}
	p.Shaped = true

	switch t := m["type"].(type) {
	case string:
		p.Type = t
	case []any:
		p.TypeList = make([]string, 0, len(t))
		for _, entry := range t {
			if name, ok := entry.(string); ok {
				p.TypeList = append(p.TypeList, name)
			}
		}
		if len(p.TypeList) > 0 {
			p.Type = p.TypeList[0]
		}
	}
	if desc, ok := m["description"].(string); ok {
		p.Description = desc
	}

	if items, ok := m["items"]; ok {
		p.Items = parseProperty("", items)
	}
	if members, ok := m["properties"].(map[string]any); ok {
		p.Properties = parseProperties(members)
	}

	for _, key := range PassthroughKeys {
		if v, ok := m[key]; ok {
			if p.Constraints == nil {
				p.Constraints = map[string]any{}
			}
			p.Constraints[key] = v
		}
	}
	return p
}

// Reflector is configured for LLM tool schemas.
// DoNotReference inlines all definitions to avoid $ref.
var Reflector = &jsonschema.Reflector{
	DoNotReference: true,
}

// Generate creates a JSON Schema document from a Go type.
// The type should be a struct with json and jsonschema tags.
func Generate[T any]() (json.RawMessage, error) {
	var zero T
	return json.Marshal(Reflector.Reflect(&zero))
}

// Reflect builds a Schema from a Go type.
//
// Example:
//
//	type StatsInput struct {
//	    IndexName string `json:"indexName" jsonschema:"required,description=Index to inspect"`
//	}
//
//	s, err := schema.Reflect[StatsInput]()
func Reflect[T any]() (*Schema, error) {
	raw, err := Generate[T]()
	if err != nil {
		return nil, fmt.Errorf("generating schema: %w", err)
	}
	return Parse(raw)
}

// MustReflect is like Reflect but panics on error.
func MustReflect[T any]() *Schema {
	s, err := Reflect[T]()
	if err != nil {
		panic(err)
	}
	return s
}

func sortedKeys(m map[string]*Property) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
