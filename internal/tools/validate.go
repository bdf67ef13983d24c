package tools

import (
	"fmt"
	"strings"
)

// ValidateParams checks params against a tool's InputSchema before dispatch.
// - Required fields: error if missing, nil, or an empty string
// - Type check: value must match the declared property type
// - Enum check: string values must be one of the declared alternatives
// Extra params not in the schema pass through untouched (lenient).
func ValidateParams(schema InputSchema, params map[string]any) (map[string]any, error) {
	if params == nil {
		params = make(map[string]any)
	}

	var missing []string
	for _, key := range schema.Required {
		val, exists := params[key]
		if !exists || val == nil {
			missing = append(missing, key)
			continue
		}
		if s, ok := val.(string); ok && s == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required parameter(s): %s", strings.Join(missing, ", "))
	}

	for key, val := range params {
		prop, declared := schema.Properties[key]
		if !declared || val == nil {
			continue
		}
		if err := checkType(key, val, prop.Type); err != nil {
			return nil, err
		}
		if len(prop.Enum) > 0 {
			if err := checkEnum(key, val, prop.Enum); err != nil {
				return nil, err
			}
		}
	}

	return params, nil
}

// checkType verifies that val matches the expected JSON Schema type.
func checkType(key string, val any, expectedType string) error {
	switch expectedType {
	case "string":
		if _, ok := val.(string); !ok {
			return fmt.Errorf("parameter %q: expected string, got %T", key, val)
		}
	case "number", "integer":
		// JSON numbers arrive as float64
		if _, ok := val.(float64); !ok {
			return fmt.Errorf("parameter %q: expected number, got %T", key, val)
		}
	case "boolean":
		if _, ok := val.(bool); !ok {
			return fmt.Errorf("parameter %q: expected boolean, got %T", key, val)
		}
	case "array":
		if _, ok := val.([]interface{}); !ok {
			return fmt.Errorf("parameter %q: expected array, got %T", key, val)
		}
	case "object":
		if _, ok := val.(map[string]interface{}); !ok {
			return fmt.Errorf("parameter %q: expected object, got %T", key, val)
		}
	}
	return nil
}

func checkEnum(key string, val any, allowed []string) error {
	s, ok := val.(string)
	if !ok {
		return nil // non-string enums are not used in this catalog
	}
	for _, a := range allowed {
		if s == a {
			return nil
		}
	}
	return fmt.Errorf("parameter %q: must be one of %s", key, strings.Join(allowed, ", "))
}

// findTool looks up a tool by name from the catalog.
func findTool(tools []Tool, name string) (Tool, bool) {
	for _, t := range tools {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}
