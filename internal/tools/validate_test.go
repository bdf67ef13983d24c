package tools

import (
	"strings"
	"testing"
)

func testSchema() InputSchema {
	return InputSchema{
		Type: "object",
		Properties: map[string]Property{
			"query": {Type: "string"},
			"type":  {Type: "string", Enum: []string{"datasets", "organizations", "all"}},
			"limit": {Type: "number"},
			"tags":  {Type: "array", Items: &Property{Type: "string"}},
			"flag":  {Type: "boolean"},
		},
		Required: []string{"query"},
	}
}

func TestValidateParams(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]any
		wantErr string
	}{
		{"valid minimal", map[string]any{"query": "water"}, ""},
		{"valid full", map[string]any{
			"query": "water", "type": "datasets", "limit": float64(5),
			"tags": []interface{}{"a"}, "flag": true,
		}, ""},
		{"nil params", nil, "missing required parameter(s): query"},
		{"missing required", map[string]any{"limit": float64(5)}, "missing required parameter(s): query"},
		{"nil required", map[string]any{"query": nil}, "missing required parameter(s): query"},
		{"empty string required", map[string]any{"query": ""}, "missing required parameter(s): query"},
		{"wrong string type", map[string]any{"query": float64(1)}, `parameter "query": expected string`},
		{"wrong number type", map[string]any{"query": "q", "limit": "ten"}, `parameter "limit": expected number`},
		{"wrong bool type", map[string]any{"query": "q", "flag": "yes"}, `parameter "flag": expected boolean`},
		{"wrong array type", map[string]any{"query": "q", "tags": "a"}, `parameter "tags": expected array`},
		{"bad enum", map[string]any{"query": "q", "type": "users"}, `parameter "type": must be one of`},
		{"good enum", map[string]any{"query": "q", "type": "all"}, ""},
		{"extra params pass", map[string]any{"query": "q", "unknown": 42}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateParams(testSchema(), tt.params)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateParamsReportsAllMissing(t *testing.T) {
	schema := InputSchema{
		Type:       "object",
		Properties: map[string]Property{"id": {Type: "string"}, "username": {Type: "string"}},
		Required:   []string{"id", "username"},
	}
	_, err := ValidateParams(schema, map[string]any{})
	if err == nil || !strings.Contains(err.Error(), "id, username") {
		t.Errorf("err = %v, want both names listed", err)
	}
}

func TestFindTool(t *testing.T) {
	if _, ok := findTool(toolDefinitions, "search"); !ok {
		t.Error("search not found in catalog")
	}
	if _, ok := findTool(toolDefinitions, "nope"); ok {
		t.Error("unexpected hit for unknown name")
	}
}
