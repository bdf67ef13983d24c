package tools

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
)

// apiVersion is reported in every envelope's metadata block.
const apiVersion = "3"

// respond wraps data in the standard outbound envelope.
func respond(data any, started time.Time) (string, error) {
	env := map[string]any{
		"success": true,
		"data":    data,
		"metadata": map[string]any{
			"timestamp":         time.Now().UTC().Format(time.RFC3339),
			"execution_time_ms": time.Since(started).Milliseconds(),
			"api_version":       apiVersion,
		},
	}
	b, err := json.Marshal(env)
	if err != nil {
		return "", errors.Wrap(err, "marshal response")
	}
	return string(b), nil
}

// strParam returns a string parameter or "".
func strParam(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}

// strParamDefault returns a string parameter or def when absent/empty.
func strParamDefault(params map[string]any, key, def string) string {
	if s, ok := params[key].(string); ok && s != "" {
		return s
	}
	return def
}

// intParam returns a numeric parameter or def. JSON numbers arrive as float64.
func intParam(params map[string]any, key string, def int) int {
	if f, ok := params[key].(float64); ok {
		return int(f)
	}
	return def
}

// strSliceParam converts an array parameter to []string, skipping non-strings.
func strSliceParam(params map[string]any, key string) []string {
	raw, ok := params[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// humanSize renders a byte count for chat output.
func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
