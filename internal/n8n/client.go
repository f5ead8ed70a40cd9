package n8n

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"n8napp/internal/session"
)

const (
	apiPrefix    = "/api/v1"
	apiKeyHeader = "X-N8N-API-KEY"
)

// CredentialSource hands out the credential of the current session.
// *session.Store satisfies it.
type CredentialSource interface {
	Credential() (session.Credential, bool)
}

type Client struct {
	creds CredentialSource
	http  *http.Client
	log   *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient builds a client with no request timeout; cancellation is left to
// the caller's context.
func NewClient(creds CredentialSource, opts ...Option) *Client {
	c := &Client{
		creds: creds,
		http:  &http.Client{},
		log:   zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) ListWorkflows(ctx context.Context) ([]Workflow, error) {
	b, err := c.do(ctx, http.MethodGet, "/workflows", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeData[Workflow](b)
}

// ListExecutions filters by workflow when workflowID is set. A non-positive
// limit picks the default for the kind of listing.
func (c *Client) ListExecutions(ctx context.Context, workflowID string, limit int) ([]Execution, error) {
	q := url.Values{}
	if workflowID != "" {
		if limit <= 0 {
			limit = DefaultWorkflowExecutionsLimit
		}
		q.Set("workflowId", workflowID)
	} else if limit <= 0 {
		limit = DefaultRecentExecutionsLimit
	}
	q.Set("limit", strconv.Itoa(limit))

	b, err := c.do(ctx, http.MethodGet, "/executions", q, nil)
	if err != nil {
		return nil, err
	}
	return decodeData[Execution](b)
}

func (c *Client) SetWorkflowActive(ctx context.Context, id string, active bool) error {
	body := struct {
		Active bool `json:"active"`
	}{Active: active}
	_, err := c.do(ctx, http.MethodPatch, "/workflows/"+url.PathEscape(id), nil, body)
	return err
}

// RunWorkflow triggers a manual run and returns as soon as the server
// accepts it.
func (c *Client) RunWorkflow(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodPost, "/workflows/"+url.PathEscape(id)+"/run", nil, struct{}{})
	return err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	cred, ok := c.creds.Credential()
	if !ok {
		return nil, ErrNotConfigured
	}

	target := strings.TrimSuffix(cred.BaseURL, "/") + apiPrefix + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	req.Header.Set(apiKeyHeader, cred.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("n8n request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	c.log.Debug("n8n request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", res.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if res.StatusCode/100 != 2 {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil, &HTTPStatusError{Code: res.StatusCode, Text: statusText(res)}
	}

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	return b, nil
}

func statusText(res *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(res.Status, strconv.Itoa(res.StatusCode)))
	if text == "" {
		text = http.StatusText(res.StatusCode)
	}
	return text
}

// decodeData pulls the "data" array out of a list response. A missing or
// null "data" yields an empty slice.
func decodeData[T any](body []byte) ([]T, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrMalformedResponse
	}
	data := gjson.GetBytes(body, "data")
	if !data.Exists() || data.Type == gjson.Null {
		return []T{}, nil
	}
	if !data.IsArray() {
		return nil, fmt.Errorf("%w: data is not an array", ErrMalformedResponse)
	}
	out := []T{}
	if err := json.Unmarshal([]byte(data.Raw), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return out, nil
}
