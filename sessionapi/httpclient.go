package sessionapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-server-session/sessions"
)

// maxErrorBody bounds how much of an error response is read for its message.
const maxErrorBody = 4 << 10

var _ API = (*HTTPClient)(nil)

// HTTPClient talks to a session server over HTTP/JSON. It never retries and
// has no timeout of its own; supply an *http.Client with one if needed.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	logger  *zerolog.Logger
}

type HTTPClientOption func(*HTTPClient)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(c *http.Client) HTTPClientOption {
	return func(h *HTTPClient) {
		h.client = c
	}
}

func WithLogger(l *zerolog.Logger) HTTPClientOption {
	return func(h *HTTPClient) {
		h.logger = l
	}
}

func NewHTTPClient(baseURL string, opts ...HTTPClientOption) *HTTPClient {
	h := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  http.DefaultClient,
		logger:  &log.Logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HTTPClient) Create(ctx context.Context, creds Credentials) (*sessions.Session, error) {
	var s sessions.Session
	if err := h.do(ctx, http.MethodPost, RouteSession, "", creds, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (h *HTTPClient) Delete(ctx context.Context, bearer, sessionID string) error {
	return h.do(ctx, http.MethodDelete, sessionPath(sessionID), bearer, nil, nil)
}

func (h *HTTPClient) Read(ctx context.Context, bearer, sessionID string) (*sessions.Session, error) {
	var s sessions.Session
	if err := h.do(ctx, http.MethodGet, sessionPath(sessionID), bearer, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (h *HTTPClient) Update(ctx context.Context, bearer, sessionID string, data map[string]any) error {
	return h.do(ctx, http.MethodPut, sessionPath(sessionID), bearer, jsonBody{data}, nil)
}

// jsonBody forces a request body even when v is nil, so PUT null clears data.
type jsonBody struct {
	v any
}

func (h *HTTPClient) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var reader io.Reader
	if body != nil {
		if jb, ok := body.(jsonBody); ok {
			body = jb.v
		}
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("[sessionapi %s %s] encode body: %w", method, path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("[sessionapi %s %s] %w", method, path, err)
	}
	requestID := uuid.New().String()
	req.Header.Set(HeaderRequestID, requestID)
	req.Header.Set("Accept", ContentTypeJSON)
	if reader != nil {
		req.Header.Set("Content-Type", ContentTypeJSON)
	}
	if bearer != "" {
		(&oauth2.Token{AccessToken: bearer, TokenType: "Bearer"}).SetAuthHeader(req)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("[sessionapi %s %s] %w", method, path, err)
	}
	defer resp.Body.Close()

	h.logger.Debug().
		Str("method", method).
		Str("path", path).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Msg("session api call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp, requestID)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("[sessionapi %s %s] decode response: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response, requestID string) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body ErrorBody
	msg := strings.TrimSpace(string(b))
	if json.Unmarshal(b, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	return newError(resp.StatusCode, msg, requestID)
}

func sessionPath(sessionID string) string {
	return RouteSession + "/" + url.PathEscape(sessionID)
}
