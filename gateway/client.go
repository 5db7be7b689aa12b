// Package gateway implements [livellm.Transport] over the HTTP API of a LiveLLM gateway.
//
// Every call carries the credentials it is made with in the X-Api-Key, X-Provider and
// X-Base-Url headers, plus a fresh X-Request-Id. The gateway performs the actual provider
// call; this package only encodes requests and decodes responses.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/livellm/livellm-go"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "livellm-go/0.1"
	contentTypeJSON  = "application/json"

	headerAPIKey    = "X-Api-Key"
	headerProvider  = "X-Provider"
	headerBaseURL   = "X-Base-Url"
	headerRequestID = "X-Request-Id"

	// maxErrorBody bounds how much of an error response is kept in an ApiErr.
	maxErrorBody = 64 << 10
)

// Client is an HTTP [livellm.Transport].
type Client struct {
	baseURL   string
	http      *http.Client
	timeout   time.Duration
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the request timeout. For unary calls it bounds the whole call; for
// streams it bounds the time until the gateway acknowledges the stream. The default is 30s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHTTPClient sets the underlying HTTP client. Its own Timeout, if any, also applies and
// cuts long streams short, so leave it zero and use [WithTimeout] instead.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New returns a Client for the gateway at baseURL, e.g. "http://localhost:8000".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{},
		timeout:   defaultTimeout,
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	return c
}

var _ livellm.Transport = (*Client)(nil)

// withTimeout bounds ctx by the configured timeout, if any.
func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string, creds *livellm.Creds) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(headerRequestID, uuid.NewString())
	if creds != nil {
		req.Header.Set(headerAPIKey, creds.APIKey)
		req.Header.Set(headerProvider, creds.Provider)
		if creds.BaseURL != "" {
			req.Header.Set(headerBaseURL, creds.BaseURL)
		}
	}
	return req, nil
}

func (c *Client) newJSONRequest(ctx context.Context, path string, payload any, creds livellm.Creds) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body), contentTypeJSON, &creds)
}

// do sends req and returns the response if its status is 2xx. Any other status is
// converted to an error and the body is closed.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, parseAPIError(resp)
	}
	return resp, nil
}

// AgentRun implements livellm.Transport.
func (c *Client) AgentRun(ctx context.Context, req livellm.AgentRequest, creds livellm.Creds) (livellm.AgentResponse, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	httpReq, err := c.newJSONRequest(ctx, "/agent/run", req, creds)
	if err != nil {
		return livellm.AgentResponse{}, err
	}
	resp, err := c.do(httpReq)
	if err != nil {
		return livellm.AgentResponse{}, err
	}
	defer resp.Body.Close()

	var out livellm.AgentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return livellm.AgentResponse{}, fmt.Errorf("failed to parse response: %w", err)
	}
	return out, nil
}

// Speak implements livellm.Transport.
func (c *Client) Speak(ctx context.Context, req livellm.SpeakRequest, creds livellm.Creds) ([]byte, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	httpReq, err := c.newJSONRequest(ctx, "/audio/speak", req, creds)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	return audio, nil
}

// Transcribe implements livellm.Transport. The audio is uploaded as multipart form data.
func (c *Client) Transcribe(ctx context.Context, req livellm.TranscribeRequest, creds livellm.Creds) (livellm.TranscribeResponse, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	body, contentType, err := encodeTranscribeForm(req)
	if err != nil {
		return livellm.TranscribeResponse{}, err
	}
	httpReq, err := c.newRequest(ctx, http.MethodPost, "/audio/transcribe", body, contentType, &creds)
	if err != nil {
		return livellm.TranscribeResponse{}, err
	}
	resp, err := c.do(httpReq)
	if err != nil {
		return livellm.TranscribeResponse{}, err
	}
	defer resp.Body.Close()

	var out livellm.TranscribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return livellm.TranscribeResponse{}, fmt.Errorf("failed to parse response: %w", err)
	}
	return out, nil
}

func encodeTranscribeForm(req livellm.TranscribeRequest) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("model", req.Model); err != nil {
		return nil, "", err
	}
	if req.Language != "" {
		if err := w.WriteField("language", req.Language); err != nil {
			return nil, "", err
		}
	}
	if len(req.GenConfig) > 0 {
		cfg, err := json.Marshal(req.GenConfig)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal gen_config: %w", err)
		}
		if err := w.WriteField("gen_config", string(cfg)); err != nil {
			return nil, "", err
		}
	}

	name := req.File.Name
	if name == "" {
		name = "audio"
	}
	ct := req.File.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	h.Set("Content-Type", ct)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(req.File.Content); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// Ping implements livellm.Transport.
func (c *Client) Ping(ctx context.Context) (map[string]any, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	httpReq, err := c.newRequest(ctx, http.MethodGet, "/ping", nil, "", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return out, nil
}

// validationDetail is one entry of a validation error response.
type validationDetail struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

// errorMessage extracts a readable message from an error body. Bodies of the form
// {"detail": "..."} or {"detail": [{"loc": [...], "msg": "..."}]} are flattened; anything
// else is returned trimmed.
func errorMessage(body []byte) string {
	var env struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &env); err != nil || len(env.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}

	var s string
	if err := json.Unmarshal(env.Detail, &s); err == nil {
		return s
	}

	var details []validationDetail
	if err := json.Unmarshal(env.Detail, &details); err == nil && len(details) > 0 {
		parts := make([]string, len(details))
		for i, d := range details {
			loc := make([]string, len(d.Loc))
			for j, l := range d.Loc {
				loc[j] = fmt.Sprint(l)
			}
			parts[i] = strings.Join(loc, ".") + ": " + d.Msg
		}
		return strings.Join(parts, "; ")
	}
	return strings.TrimSpace(string(body))
}

func parseAPIError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil && !errors.Is(err, io.EOF) {
		return livellm.ApiErr{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read error body: %v", err)}
	}
	msg := errorMessage(body)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return livellm.AuthenticationErr(msg)
	case http.StatusForbidden:
		return livellm.ApiErr{StatusCode: resp.StatusCode, Type: "permission_error", Message: msg}
	case http.StatusNotFound:
		return livellm.ApiErr{StatusCode: resp.StatusCode, Type: "not_found_error", Message: msg}
	case http.StatusRequestEntityTooLarge:
		return livellm.ApiErr{StatusCode: resp.StatusCode, Type: "request_too_large", Message: msg}
	case http.StatusUnprocessableEntity:
		return livellm.ApiErr{StatusCode: resp.StatusCode, Type: "validation_error", Message: msg}
	case http.StatusTooManyRequests:
		return livellm.RateLimitErr(msg)
	case http.StatusServiceUnavailable:
		return livellm.ApiErr{StatusCode: resp.StatusCode, Type: "service_unavailable", Message: msg}
	}
	if resp.StatusCode >= 500 {
		return livellm.ApiErr{StatusCode: resp.StatusCode, Type: "api_error", Message: msg}
	}
	return livellm.ApiErr{StatusCode: resp.StatusCode, Type: "invalid_request_error", Message: msg}
}
