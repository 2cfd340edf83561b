// Package apiclient talks to the taking-test REST API. Every response is an
// envelope {statusCode, message, result}; statusCode 0 is success whatever the
// HTTP status says.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Hecker-Chuoi/answergate-sub000/internal/model"
)

const (
	headerRequestID = "X-Request-ID"
	maxBodyBytes    = 8 << 20
)

// Client is safe for concurrent use. It holds no credentials; the token is passed
// per call.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New returns a client for apiRoot, e.g. "http://localhost:8080".
func New(apiRoot string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(apiRoot, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log.With().Str("component", "api_client").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ─── Envelope ───────────────────────────────────────────────────────

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Result     json.RawMessage `json:"result"`
}

// do performs one call and decodes result into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "br")
	req.Header.Set(headerRequestID, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Msg("Request failed")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := readBody(resp)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Str("request_id", requestID).
		Int("http_status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("Request")

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &Error{
			HTTPStatus: resp.StatusCode,
			StatusCode: -1,
			Message:    http.StatusText(resp.StatusCode),
		}
	}
	if env.StatusCode != 0 {
		return &Error{HTTPStatus: resp.StatusCode, StatusCode: env.StatusCode, Message: env.Message}
	}
	if out == nil {
		return nil
	}
	if len(env.Result) == 0 || string(env.Result) == "null" {
		return ErrEmptyResult
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", path, err)
	}
	return nil
}

func readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "br") {
		r = brotli.NewReader(resp.Body)
	}
	return io.ReadAll(io.LimitReader(r, maxBodyBytes))
}

func sessionPath(sessionID int, suffix string) string {
	return fmt.Sprintf("/taking-test/%d%s", sessionID, suffix)
}

// ─── Operations ─────────────────────────────────────────────────────

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (*model.LoginResult, error) {
	var out model.LoginResult
	req := model.LoginRequest{Username: username, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Session fetches the session metadata.
func (c *Client) Session(ctx context.Context, token string, sessionID int) (model.SessionInfo, error) {
	var out model.SessionInfo
	err := c.do(ctx, http.MethodGet, sessionPath(sessionID, ""), token, nil, &out)
	return out, err
}

// Test fetches the test metadata for a session.
func (c *Client) Test(ctx context.Context, token string, sessionID int) (model.TestInfo, error) {
	var out model.TestInfo
	err := c.do(ctx, http.MethodGet, sessionPath(sessionID, "/test"), token, nil, &out)
	return out, err
}

// Questions fetches the questions in server order.
func (c *Client) Questions(ctx context.Context, token string, sessionID int) ([]model.Question, error) {
	var out []model.Question
	if err := c.do(ctx, http.MethodGet, sessionPath(sessionID, "/questions"), token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveProgress replaces the stored answers with entries.
func (c *Client) SaveProgress(ctx context.Context, token string, sessionID int, entries []model.AnswerEntry) error {
	if entries == nil {
		entries = []model.AnswerEntry{}
	}
	return c.do(ctx, http.MethodPost, sessionPath(sessionID, "/save-progress"), token, entries, nil)
}

// Submit finishes the attempt.
func (c *Client) Submit(ctx context.Context, token string, sessionID int) error {
	return c.do(ctx, http.MethodPost, sessionPath(sessionID, "/submit"), token, nil, nil)
}

// Reschedule moves a session. It needs an admin token.
func (c *Client) Reschedule(ctx context.Context, token string, sessionID int, req model.RescheduleRequest) (model.SessionInfo, error) {
	var out model.SessionInfo
	path := fmt.Sprintf("/admin/sessions/%d/schedule", sessionID)
	err := c.do(ctx, http.MethodPatch, path, token, req, &out)
	return out, err
}
