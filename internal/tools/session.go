package tools

import (
	"context"
	"sync"
	"time"
)

// Session holds the write credential for one client connection. It starts
// unauthenticated and moves to authenticated when set_api_key runs; the core
// never clears it. Teardown is the transport's job.
type Session struct {
	mu     sync.Mutex
	apiKey string
	apiURL string
}

// NewSession returns an unauthenticated session.
func NewSession() *Session {
	return &Session{}
}

// SetCredentials stores the API key and optional portal URL override.
// Concurrent callers observe whatever was set most recently.
func (s *Session) SetCredentials(apiKey, apiURL string) {
	s.mu.Lock()
	s.apiKey = apiKey
	s.apiURL = apiURL
	s.mu.Unlock()
}

// Credentials returns the stored credential. ok is false while the session
// is unauthenticated.
func (s *Session) Credentials() (apiKey, apiURL string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apiKey, s.apiURL, s.apiKey != ""
}

// authRequiredMessage is the fixed response for write tools called before
// set_api_key. No upstream call is made in that state.
const authRequiredMessage = "Authentication required: call set_api_key with your portal API key before using write operations."

func handleSetAPIKey(_ context.Context, deps *Deps, params map[string]any) (string, error) {
	apiKey := strParam(params, "api_key")
	apiURL := strParam(params, "api_url")

	if deps.Session == nil {
		deps.Session = NewSession()
	}
	deps.Session.SetCredentials(apiKey, apiURL)

	// The key itself is never echoed back or logged.
	data := map[string]any{
		"authenticated": true,
		"message":       "API key set for this session. Write operations are now available.",
	}
	if apiURL != "" {
		data["api_url"] = apiURL
	}
	return respond(data, time.Now())
}
