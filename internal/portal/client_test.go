package portal

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
)

func TestClientGetSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/3/action/package_show" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("id") != "water-quality" {
			t.Errorf("id = %s", r.URL.Query().Get("id"))
		}
		fmt.Fprint(w, `{"success": true, "result": {"id": "abc"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	raw, err := c.Get(context.Background(), "package_show", map[string]any{"id": "water-quality"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(raw) != `{"id": "abc"}` {
		t.Errorf("result = %s", raw)
	}
}

func TestClientAPIKeyHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"success": true, "result": {}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-key", nil)
	if _, err := c.Get(context.Background(), "package_show", nil); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if gotAuth != "secret-key" {
		t.Errorf("Authorization = %q, want secret-key", gotAuth)
	}
}

func TestClientEnvelopeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success": false, "error": {"message": "Not found", "__type": "Not Found Error"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	_, err := c.Get(context.Background(), "package_show", map[string]any{"id": "nope"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want APIError, got %v", err)
	}
	if apiErr.Action != "package_show" {
		t.Errorf("action = %s", apiErr.Action)
	}
}

func TestClientHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	_, err := c.Get(context.Background(), "package_show", map[string]any{"id": "nope"})
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("want HTTPError, got %v", err)
	}
	if httpErr.Status != 404 {
		t.Errorf("status = %d", httpErr.Status)
	}
}

func TestClientCaching(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"success": true, "result": {"count": 1}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", NewMemoryCache(time.Minute, nil))
	params := map[string]any{"q": "water", "rows": 10}

	for i := 0; i < 3; i++ {
		if _, err := c.Get(context.Background(), "package_search", params); err != nil {
			t.Fatalf("Get %d: %v", i, err)
		}
	}
	if calls != 1 {
		t.Errorf("upstream calls = %d, want 1", calls)
	}

	// Same key set in a different map instance still hits the cache.
	if _, err := c.Get(context.Background(), "package_search", map[string]any{"rows": 10, "q": "water"}); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if calls != 1 {
		t.Errorf("upstream calls = %d after equivalent params, want 1", calls)
	}
}

func TestClientGetUncachedBypasses(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"success": true, "result": {}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", NewMemoryCache(time.Minute, nil))
	for i := 0; i < 2; i++ {
		if _, err := c.GetUncached(context.Background(), "status_show", nil); err != nil {
			t.Fatalf("GetUncached: %v", err)
		}
	}
	if calls != 2 {
		t.Errorf("upstream calls = %d, want 2", calls)
	}
}

func TestClientPostNeverCached(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %s", ct)
		}
		fmt.Fprint(w, `{"success": true, "result": {"id": "new"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", NewMemoryCache(time.Minute, nil))
	body := map[string]any{"name": "test-dataset"}
	for i := 0; i < 2; i++ {
		if _, err := c.Post(context.Background(), "package_create", body); err != nil {
			t.Fatalf("Post: %v", err)
		}
	}
	if calls != 2 {
		t.Errorf("upstream calls = %d, want 2", calls)
	}
}

func TestClientEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success": true}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	raw, err := c.Post(context.Background(), "organization_member_delete", map[string]any{"id": "x"})
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if string(raw) != "{}" {
		t.Errorf("result = %s, want {}", raw)
	}
}

func TestWithCredentials(t *testing.T) {
	base := NewClient("https://portal.example.org/", "anon", nil)

	writer := base.WithCredentials("write-key", "https://other.example.org")
	if writer.BaseURL() != "https://other.example.org" {
		t.Errorf("override base = %s", writer.BaseURL())
	}
	if base.BaseURL() != "https://portal.example.org" {
		t.Errorf("original base mutated: %s", base.BaseURL())
	}

	sameHost := base.WithCredentials("write-key", "")
	if sameHost.BaseURL() != "https://portal.example.org" {
		t.Errorf("empty override changed base: %s", sameHost.BaseURL())
	}
}

func TestFetchRawCapsSize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		for i := 0; i < 100; i++ {
			fmt.Fprintln(w, "aaaaaaaaaa,bbbbbbbbbb")
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	body, contentType, err := c.FetchRaw(context.Background(), srv.URL+"/file.csv", 64)
	if err != nil {
		t.Fatalf("FetchRaw: %v", err)
	}
	if len(body) != 64 {
		t.Errorf("len = %d, want 64", len(body))
	}
	if contentType != "text/csv" {
		t.Errorf("content-type = %s", contentType)
	}
}
