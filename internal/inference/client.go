// Package inference is the HTTP client for the document inference service:
// multipart upload, summary lookup and question answering.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is where the service listens unless configured otherwise.
	DefaultBaseURL = "http://127.0.0.1:5000"
	// DefaultModel selects the answer model sent with every question.
	DefaultModel = "bart"
	// maxResponseBytes caps how much of a response body is decoded.
	maxResponseBytes int64 = 4 << 20
)

// AskRequest is the JSON body of an ask call.
type AskRequest struct {
	Question string `json:"question"`
	Model    string `json:"model"`
}

type uploadResponse struct {
	DocID   string `json:"doc_id"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type summaryResponse struct {
	Summary string `json:"summary"`
	Error   string `json:"error,omitempty"`
}

type answerResponse struct {
	Answer string `json:"answer"`
	Error  string `json:"error,omitempty"`
}

// Client talks to one inference service.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds every request issued through the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// NewClient builds a client for baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	raw := strings.TrimSpace(baseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("inference: parse base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("inference: base url %q must use http or https", raw)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("inference: base url %q has no host", raw)
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	c := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// BaseURL returns the service root the client targets.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Upload sends the document as multipart field "file" and returns the
// assigned document id.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (string, error) {
	const op = "upload"
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", &TransportError{Op: op, Err: err}
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", &TransportError{Op: op, Err: fmt.Errorf("read %s: %w", filename, err)}
	}
	if err := writer.Close(); err != nil {
		return "", &TransportError{Op: op, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("upload"), &body)
	if err != nil {
		return "", &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var resp uploadResponse
	if err := c.do(op, req, &resp, func() string { return resp.Error }); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.DocID) == "" {
		return "", &TransportError{Op: op, Err: errors.New("response missing doc_id")}
	}
	return resp.DocID, nil
}

// Summarize fetches the summary for docID.
func (c *Client) Summarize(ctx context.Context, docID string) (string, error) {
	const op = "summary"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("summary", docID), nil)
	if err != nil {
		return "", &TransportError{Op: op, Err: err}
	}
	var resp summaryResponse
	if err := c.do(op, req, &resp, func() string { return resp.Error }); err != nil {
		return "", err
	}
	return resp.Summary, nil
}

// Ask submits a question about docID.
func (c *Client) Ask(ctx context.Context, docID string, ask AskRequest) (string, error) {
	const op = "ask"
	payload, err := json.Marshal(ask)
	if err != nil {
		return "", &TransportError{Op: op, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("ask", docID), bytes.NewReader(payload))
	if err != nil {
		return "", &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	var resp answerResponse
	if err := c.do(op, req, &resp, func() string { return resp.Error }); err != nil {
		return "", err
	}
	return resp.Answer, nil
}

// do executes req and decodes the JSON body into out. Non-2xx responses become
// *BackendError carrying errorField() when the body decoded; anything that
// prevents reading a well-formed success body becomes *TransportError.
func (c *Client) do(op string, req *http.Request, out any, errorField func() string) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}
	decodeErr := json.Unmarshal(data, out)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		berr := &BackendError{Op: op, StatusCode: resp.StatusCode}
		if decodeErr == nil {
			berr.Message = strings.TrimSpace(errorField())
		}
		return berr
	}
	if decodeErr != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", decodeErr)}
	}
	return nil
}

func (c *Client) endpoint(parts ...string) string {
	u := *c.baseURL
	escaped := make([]string, 0, len(parts))
	for _, part := range parts {
		escaped = append(escaped, url.PathEscape(part))
	}
	u.Path = c.baseURL.Path + "/" + strings.Join(parts, "/")
	u.RawPath = c.baseURL.EscapedPath() + "/" + strings.Join(escaped, "/")
	return u.String()
}
