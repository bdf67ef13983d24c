package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"portalmcp/server/internal/portal"
)

func TestWriteGateBlocksWithoutCredentials(t *testing.T) {
	var upstreamCalls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&upstreamCalls, 1)
		w.Write([]byte(ok(`{}`)))
	}))
	defer srv.Close()
	deps := &Deps{Client: portal.NewClient(srv.URL, "", nil), Session: NewSession()}

	writes := []struct {
		tool   string
		params map[string]any
	}{
		{"create_dataset", map[string]any{"name": "x"}},
		{"update_dataset", map[string]any{"id": "x"}},
		{"create_resource", map[string]any{"package_id": "x", "url": "https://x.test/f.csv"}},
		{"create_organization", map[string]any{"name": "x"}},
		{"update_organization", map[string]any{"id": "x"}},
		{"add_user_to_organization", map[string]any{"id": "x", "username": "alice"}},
		{"remove_user_from_organization", map[string]any{"id": "x", "username": "alice"}},
	}

	for _, w := range writes {
		t.Run(w.tool, func(t *testing.T) {
			res, err := Dispatch(context.Background(), deps, w.tool, w.params)
			if err != nil {
				t.Fatalf("Dispatch: %v", err)
			}
			if !res.IsError {
				t.Error("IsError = false")
			}
			if res.Text != authRequiredMessage {
				t.Errorf("text = %q", res.Text)
			}
		})
	}

	if n := atomic.LoadInt64(&upstreamCalls); n != 0 {
		t.Errorf("upstream calls = %d, want 0 before set_api_key", n)
	}
}

func TestSetAPIKeyEnablesWrites(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(ok(`{"id": "new-ds", "name": "my-dataset", "title": "My Dataset"}`)))
	}))
	defer srv.Close()
	deps := &Deps{Client: portal.NewClient(srv.URL, "", nil), Session: NewSession()}

	res, err := Dispatch(context.Background(), deps, "set_api_key", map[string]any{"api_key": "write-key"})
	if err != nil || res.IsError {
		t.Fatalf("set_api_key: %v / %+v", err, res)
	}
	if strings.Contains(res.Text, "write-key") {
		t.Error("set_api_key echoed the key back")
	}

	res, err = Dispatch(context.Background(), deps, "create_dataset", map[string]any{"name": "my-dataset"})
	if err != nil {
		t.Fatalf("create_dataset: %v", err)
	}
	if res.IsError {
		t.Fatalf("create_dataset result: %s", res.Text)
	}
	if gotAuth != "write-key" {
		t.Errorf("Authorization = %q, want the session key", gotAuth)
	}

	data := decodeEnvelope(t, res.Text)
	if data["created"] != true {
		t.Errorf("created = %v", data["created"])
	}
	ds := data["dataset"].(map[string]any)
	if ds["url"] != srv.URL+"/dataset/my-dataset" {
		t.Errorf("url = %v", ds["url"])
	}
}

func TestSetAPIKeyURLOverride(t *testing.T) {
	// Writes go to the override host; the shared read client is untouched.
	override := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(ok(`{"id": "o1", "name": "new-org"}`)))
	}))
	defer override.Close()

	deps, _ := newTestDeps(t, func(action string, r *http.Request) string {
		t.Errorf("write hit the read host: %s", action)
		return notFound()
	})
	deps.Session.SetCredentials("key", override.URL)

	res, err := Dispatch(context.Background(), deps, "create_organization", map[string]any{"name": "new-org"})
	if err != nil {
		t.Fatalf("create_organization: %v", err)
	}
	if res.IsError {
		t.Fatalf("result: %s", res.Text)
	}
	data := decodeEnvelope(t, res.Text)
	org := data["organization"].(map[string]any)
	if org["url"] != override.URL+"/organization/new-org" {
		t.Errorf("url = %v", org["url"])
	}
}

func TestUpdateDatasetSendsPatch(t *testing.T) {
	var gotAction string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAction = r.URL.Path
		_ = jsonDecode(r, &gotBody)
		w.Write([]byte(ok(`{"id": "d1", "name": "ds", "title": "New Title"}`)))
	}))
	defer srv.Close()
	deps := &Deps{Client: portal.NewClient(srv.URL, "", nil), Session: NewSession()}
	deps.Session.SetCredentials("key", "")

	res, err := Dispatch(context.Background(), deps, "update_dataset", map[string]any{
		"id": "d1", "title": "New Title",
		"tags": []interface{}{"water", "quality"},
	})
	if err != nil {
		t.Fatalf("update_dataset: %v", err)
	}
	if res.IsError {
		t.Fatalf("result: %s", res.Text)
	}

	if !strings.HasSuffix(gotAction, "/package_patch") {
		t.Errorf("action = %s, want package_patch", gotAction)
	}
	if gotBody["title"] != "New Title" {
		t.Errorf("body title = %v", gotBody["title"])
	}
	tags := gotBody["tags"].([]any)
	if len(tags) != 2 || tags[0].(map[string]any)["name"] != "water" {
		t.Errorf("tags = %v, want portal tag objects", tags)
	}
}

func TestMemberTools(t *testing.T) {
	var gotBody map[string]any
	var gotAction string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAction = r.URL.Path
		_ = jsonDecode(r, &gotBody)
		w.Write([]byte(`{"success": true}`))
	}))
	defer srv.Close()
	deps := &Deps{Client: portal.NewClient(srv.URL, "", nil), Session: NewSession()}
	deps.Session.SetCredentials("key", "")

	res, err := Dispatch(context.Background(), deps, "add_user_to_organization", map[string]any{
		"id": "env-dept", "username": "alice",
	})
	if err != nil || res.IsError {
		t.Fatalf("add: %v / %+v", err, res)
	}
	if !strings.HasSuffix(gotAction, "/organization_member_create") {
		t.Errorf("action = %s", gotAction)
	}
	if gotBody["role"] != "member" {
		t.Errorf("default role = %v, want member", gotBody["role"])
	}
	data := decodeEnvelope(t, res.Text)
	if data["added"] != true || data["username"] != "alice" {
		t.Errorf("data = %v", data)
	}

	res, err = Dispatch(context.Background(), deps, "remove_user_from_organization", map[string]any{
		"id": "env-dept", "username": "alice",
	})
	if err != nil || res.IsError {
		t.Fatalf("remove: %v / %+v", err, res)
	}
	if !strings.HasSuffix(gotAction, "/organization_member_delete") {
		t.Errorf("action = %s", gotAction)
	}
	data = decodeEnvelope(t, res.Text)
	if data["removed"] != true {
		t.Errorf("data = %v", data)
	}
}

func TestCopyParamsWhitelist(t *testing.T) {
	body := copyParams(map[string]any{
		"name": "x", "private": true, "nil-value": nil, "not-listed": "y",
	}, "name", "private", "nil-value", "absent")
	if len(body) != 2 {
		t.Errorf("body = %v, want only name and private", body)
	}
	if body["name"] != "x" || body["private"] != true {
		t.Errorf("body = %v", body)
	}
}
