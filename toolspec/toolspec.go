// Package toolspec adapts operation schemas to the function-calling format of
// chat-completion services.
package toolspec

import (
	"encoding/json"
	"fmt"

	"github.com/i2y/indexpilot/provider"
	"github.com/i2y/indexpilot/schema"
)

// FunctionSpec is one entry of a chat request's tool list.
type FunctionSpec struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

// Function describes a callable function.
type Function struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  Parameters `json:"parameters"`
}

// Parameters is the top-level parameter object. It never allows
// undeclared parameters.
type Parameters struct {
	Type                 string                    `json:"type"`
	Properties           map[string]map[string]any `json:"properties"`
	Required             []string                  `json:"required"`
	AdditionalProperties bool                      `json:"additionalProperties"`
}

// Convert builds the function spec of an operation.
func Convert(name, description string, s *schema.Schema) FunctionSpec {
	if description == "" {
		description = "Algolia tool: " + name
	}
	params := Parameters{
		Type:       "object",
		Properties: map[string]map[string]any{},
		Required:   []string{},
	}
	if s != nil {
		for pname, prop := range s.Properties {
			params.Properties[pname] = Simplify(pname, prop)
		}
		params.Required = append(params.Required, s.Required...)
	}
	return FunctionSpec{
		Type: "function",
		Function: Function{
			Name:        name,
			Description: description,
			Parameters:  params,
		},
	}
}

// ConvertRaw is Convert for a raw JSON Schema document. Malformed parts of
// the document are dropped.
func ConvertRaw(name, description string, raw json.RawMessage) FunctionSpec {
	return Convert(name, description, schema.Lenient(raw))
}

// Simplify reduces one property declaration to its type, description,
// element type, nested members and passthrough constraints.
func Simplify(name string, p *schema.Property) map[string]any {
	out := map[string]any{}
	if p == nil || !p.Shaped {
		out["type"] = string(schema.KindString)
		out["description"] = "Parameter " + name
		return out
	}

	typ := p.Type
	if typ == "" {
		typ = string(schema.KindString)
	}
	out["type"] = typ

	desc := p.Description
	if desc == "" {
		desc = "Parameter " + name
	}
	out["description"] = desc

	switch schema.ParseKind(typ) {
	case schema.KindArray:
		itemType := string(schema.KindString)
		if p.Items != nil && p.Items.Type != "" {
			itemType = p.Items.Type
		}
		out["items"] = map[string]any{"type": itemType}
	case schema.KindObject:
		out["additionalProperties"] = true
		if p.Properties != nil {
			members := make(map[string]any, len(p.Properties))
			for mname, member := range p.Properties {
				members[mname] = Simplify(mname, member)
			}
			out["properties"] = members
		}
	}

	for key, v := range p.Constraints {
		out[key] = v
	}
	return out
}

// ToolDef converts f into the provider-agnostic tool definition.
func (f FunctionSpec) ToolDef() (provider.ToolDef, error) {
	params, err := json.Marshal(f.Function.Parameters)
	if err != nil {
		return provider.ToolDef{}, fmt.Errorf("encoding parameters of %s: %w", f.Function.Name, err)
	}
	return provider.ToolDef{
		Name:        f.Function.Name,
		Description: f.Function.Description,
		Parameters:  params,
	}, nil
}
