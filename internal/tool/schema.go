package tool

import "slices"

// Definition is the (name, description, schema) triple that crosses the
// provider boundary.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// InputSchema builds a JSON schema object for params.
//
// In strict mode every parameter is listed as required, optional
// parameters are made nullable by widening their type with "null", and
// additionalProperties is set to false on object parameters and at the
// top level. Strict mode is what OpenAI structured tool calls require.
func InputSchema(params []Parameter, strict bool) map[string]any {
	properties := make(map[string]any, len(params))
	var required []string

	for _, p := range params {
		types := p.Type
		if strict {
			required = append(required, p.Name)
			if !p.Required && !slices.Contains(types, "null") {
				types = append(append([]string(nil), types...), "null")
			}
		} else if p.Required {
			required = append(required, p.Name)
		}

		prop := map[string]any{
			"type":        schemaType(types),
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if len(p.Items) > 0 {
			prop["items"] = p.Items
		}
		if strict && len(p.Type) == 1 && p.Type[0] == "object" {
			prop["additionalProperties"] = false
		}
		properties[p.Name] = prop
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	if strict {
		schema["additionalProperties"] = false
	}
	return schema
}

// DefinitionOf returns the provider-facing definition of t.
func DefinitionOf(t Tool, strict bool) Definition {
	return Definition{
		Name:        t.Name(),
		Description: t.Description(),
		InputSchema: InputSchema(t.Parameters(), strict),
	}
}

// Definitions returns the definitions of every tool in order.
func Definitions(tools []Tool, strict bool) []Definition {
	defs := make([]Definition, len(tools))
	for i, t := range tools {
		defs[i] = DefinitionOf(t, strict)
	}
	return defs
}

// schemaType renders a single type as a plain string and a union as a list.
func schemaType(types []string) any {
	if len(types) == 1 {
		return types[0]
	}
	return types
}

