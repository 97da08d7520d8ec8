package groupme

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultAPIURL is the production GroupMe API endpoint.
	DefaultAPIURL = "https://api.groupme.com/v3"

	maxResponseBytes = 10 << 20 // prevent unbounded reads from API responses
)

// Session is a thin HTTP wrapper around the GroupMe API. It carries the
// access token, the base URL, and the attachment registry used to decode
// message attachments. A Session is safe for concurrent use.
type Session struct {
	token   string
	baseURL string
	http    *http.Client

	// Attachments decodes message attachments. NewSession installs the
	// default registry; replace it before issuing requests to customize
	// decoding.
	Attachments *AttachmentRegistry
}

// NewSession creates a new API session. If baseURL is empty, DefaultAPIURL
// is used.
func NewSession(token, baseURL string) *Session {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	return &Session{
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
		Attachments: NewAttachmentRegistry(),
	}
}

// envelope is the generic wrapper returned by the GroupMe API.
type envelope[T any] struct {
	Response T     `json:"response"`
	Meta     *Meta `json:"meta,omitempty"`
}

// Meta carries the API status block attached to every response.
type Meta struct {
	Code   int      `json:"code"`
	Errors []string `json:"errors,omitempty"`
}

// do sends a request to the given API path and decodes the response
// envelope. Non-2xx statuses produce a *APIError carrying the status code
// and any error strings from the meta block.
func do[T any](ctx context.Context, s *Session, method, path string, query url.Values, payload any) (*T, error) {
	u := s.baseURL + "/" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("groupme: marshal %s request: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("groupme: create %s request: %w", path, err)
	}
	req.Header.Set("X-Access-Token", s.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("groupme: %s request failed: %w", path, err)
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("groupme: read %s response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: respBody}
		var env envelope[json.RawMessage]
		if err := json.Unmarshal(respBody, &env); err == nil && env.Meta != nil {
			apiErr.Errors = env.Meta.Errors
		}
		return nil, apiErr
	}

	// Some endpoints (bots/post, likes) return an empty body on success.
	if len(respBody) == 0 {
		return new(T), nil
	}

	var env envelope[T]
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("groupme: decode %s response: %w", path, err)
	}
	return &env.Response, nil
}

func get[T any](ctx context.Context, s *Session, path string, query url.Values) (*T, error) {
	return do[T](ctx, s, http.MethodGet, path, query, nil)
}

func post[T any](ctx context.Context, s *Session, path string, payload any) (*T, error) {
	return do[T](ctx, s, http.MethodPost, path, nil, payload)
}

// postQuery is post for the few endpoints that take parameters in the query
// string rather than the body.
func postQuery[T any](ctx context.Context, s *Session, path string, query url.Values) (*T, error) {
	return do[T](ctx, s, http.MethodPost, path, query, nil)
}

// newGUID returns a random hex identifier used as an idempotency key.
func newGUID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("groupme: generate guid: %w", err)
	}
	return hex.EncodeToString(b), nil
}
