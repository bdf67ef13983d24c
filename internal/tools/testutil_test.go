package tools

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path"
	"testing"

	"portalmcp/server/internal/portal"
)

// newTestDeps wires a Deps against an httptest portal. The handler receives
// the action name and the request and returns the envelope body verbatim.
func newTestDeps(t *testing.T, handler func(action string, r *http.Request) string) (*Deps, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(handler(path.Base(r.URL.Path), r)))
	}))
	t.Cleanup(srv.Close)

	return &Deps{
		Client:  portal.NewClient(srv.URL, "", nil),
		Session: NewSession(),
	}, srv
}

func jsonDecode(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

func ok(result string) string {
	return `{"success": true, "result": ` + result + `}`
}

func notFound() string {
	return `{"success": false, "error": {"message": "Not found", "__type": "Not Found Error"}}`
}

// decodeEnvelope parses a tool result produced by respond.
func decodeEnvelope(t *testing.T, text string) map[string]any {
	t.Helper()
	var env struct {
		Success  bool           `json:"success"`
		Data     map[string]any `json:"data"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		t.Fatalf("invalid envelope %q: %v", text, err)
	}
	if !env.Success {
		t.Fatalf("envelope success = false: %s", text)
	}
	if env.Metadata["api_version"] != "3" {
		t.Errorf("api_version = %v", env.Metadata["api_version"])
	}
	return env.Data
}
