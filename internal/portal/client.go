package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("portalmcp/portal")

var httpClient = &http.Client{Timeout: 30 * time.Second}

// envelope is the portal's action API wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   json.RawMessage `json:"error"`
}

// Client issues calls against a CKAN-style action API
// (GET/POST {base}/api/3/action/{action}).
type Client struct {
	baseURL string
	apiKey  string
	cache   Cache
	http    *http.Client
}

// NewClient creates a portal client. apiKey may be empty (anonymous reads).
// A nil cache disables caching entirely.
func NewClient(baseURL, apiKey string, cache Cache) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		cache:   cache,
		http:    httpClient,
	}
}

// WithCredentials returns a copy of the client using the given API key and,
// when apiURL is non-empty, a different portal base URL. The cache is shared;
// write actions never touch it.
func (c *Client) WithCredentials(apiKey, apiURL string) *Client {
	clone := *c
	clone.apiKey = apiKey
	if apiURL != "" {
		clone.baseURL = strings.TrimRight(apiURL, "/")
	}
	return &clone
}

// BaseURL returns the portal base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get calls a read action. Results are cached by action+params for the
// cache TTL; a valid entry short-circuits the network call.
func (c *Client) Get(ctx context.Context, action string, params map[string]any) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, action, params, true)
}

// GetUncached calls a read action bypassing the cache in both directions.
func (c *Client) GetUncached(ctx context.Context, action string, params map[string]any) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, action, params, false)
}

// Post calls a write action. Never cached.
func (c *Client) Post(ctx context.Context, action string, body map[string]any) (json.RawMessage, error) {
	return c.request(ctx, http.MethodPost, action, body, false)
}

func (c *Client) request(ctx context.Context, method, action string, params map[string]any, cacheable bool) (json.RawMessage, error) {
	cacheable = cacheable && method == http.MethodGet && c.cache != nil

	var key string
	if cacheable {
		key = CacheKey(action, params)
		if v, ok := c.cache.Get(key); ok {
			return v, nil
		}
	}

	ctx, span := tracer.Start(ctx, "portal."+action,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("portal.action", action),
			attribute.String("http.method", method),
		))
	defer span.End()

	result, err := c.do(ctx, method, action, params)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if cacheable {
		c.cache.Put(key, result)
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, method, action string, params map[string]any) (json.RawMessage, error) {
	endpoint := c.baseURL + "/api/3/action/" + action

	var reqBody io.Reader
	if method == http.MethodGet {
		if len(params) > 0 {
			q := url.Values{}
			for k, v := range params {
				q.Set(k, queryValue(v))
			}
			endpoint += "?" + q.Encode()
		}
	} else if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, errors.Wrap(err, "marshal request body")
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "portal request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{Status: resp.StatusCode, StatusText: http.StatusText(resp.StatusCode)}
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, errors.Wrap(err, "decode envelope")
	}
	if !env.Success {
		body := string(env.Error)
		if body == "" {
			body = string(respBody)
		}
		return nil, &APIError{Action: action, Body: body}
	}
	if len(env.Result) == 0 {
		return json.RawMessage("{}"), nil
	}
	return env.Result, nil
}

// queryValue renders a parameter for the query string. Non-scalar values are
// sent as JSON, which CKAN accepts for list-valued parameters.
func queryValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return strings.Trim(string(b), `"`)
	}
}

// FetchRaw downloads a resource's raw bytes from its declared URL, capped at
// maxSize. Used by the preview fallback chain when the datastore has no rows.
func (c *Client) FetchRaw(ctx context.Context, rawURL string, maxSize int64) ([]byte, string, error) {
	ctx, span := tracer.Start(ctx, "portal.fetch_raw",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("url.full", rawURL)))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", errors.Wrap(err, "create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, "", errors.Wrap(err, "download failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := &HTTPError{Status: resp.StatusCode, StatusText: http.StatusText(resp.StatusCode)}
		span.SetStatus(codes.Error, err.Error())
		return nil, "", err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSize))
	if err != nil {
		return nil, "", errors.Wrap(err, "read content")
	}
	return body, resp.Header.Get("Content-Type"), nil
}
