// Package client provides a Go client for the DecentraDNS API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client is a DecentraDNS API client
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// New creates a new DecentraDNS client
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error response
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsConflict reports whether err is a 409 from the API.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict
}

// ListDomains lists registered domains. Deleted domains are included only when asked.
func (c *Client) ListDomains(ctx context.Context, includeDeleted bool) ([]Domain, error) {
	path := "/api/v1/domains"
	if includeDeleted {
		path += "?status=all"
	}
	var resp struct {
		Data []Domain `json:"data"`
	}
	if err := c.send(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// GetDomain gets a live domain by name
func (c *Client) GetDomain(ctx context.Context, name string) (*Domain, error) {
	var resp Domain
	if err := c.send(ctx, http.MethodGet, "/api/v1/domains/"+url.PathEscape(name), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register registers a domain
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	var resp RegisterResult
	if err := c.send(ctx, http.MethodPost, "/api/v1/domains", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateCode replaces the given website code fields
func (c *Client) UpdateCode(ctx context.Context, name string, code CodeUpdate) error {
	return c.send(ctx, http.MethodPut, "/api/v1/domains/"+url.PathEscape(name)+"/code", code, nil)
}

// SetPublished sets the publish flag
func (c *Client) SetPublished(ctx context.Context, name string, published bool) error {
	body := map[string]bool{"isPublished": published}
	return c.send(ctx, http.MethodPut, "/api/v1/domains/"+url.PathEscape(name)+"/publish", body, nil)
}

// DeleteDomain soft-deletes a domain
func (c *Client) DeleteDomain(ctx context.Context, name string) error {
	return c.send(ctx, http.MethodDelete, "/api/v1/domains/"+url.PathEscape(name), nil, nil)
}

// Transfer moves a domain to a new owner
func (c *Client) Transfer(ctx context.Context, name, toAddress string) (*TransferRecord, error) {
	var resp TransferRecord
	body := map[string]string{"toAddress": toAddress}
	if err := c.send(ctx, http.MethodPost, "/api/v1/domains/"+url.PathEscape(name)+"/transfer", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History returns activity entries, newest first
func (c *Client) History(ctx context.Context, q HistoryQuery) ([]HistoryRecord, error) {
	var resp struct {
		Data []HistoryRecord `json:"data"`
	}
	if err := c.send(ctx, http.MethodGet, "/api/v1/history"+q.encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ExportHistory returns the pretty printed history export document
func (c *Client) ExportHistory(ctx context.Context, q HistoryQuery) ([]byte, error) {
	return c.getRaw(ctx, "/api/v1/history/export"+q.encode())
}

// ClearHistory removes every history entry
func (c *Client) ClearHistory(ctx context.Context) error {
	return c.send(ctx, http.MethodDelete, "/api/v1/history", nil, nil)
}

// Stats returns aggregate counts
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var resp Stats
	if err := c.send(ctx, http.MethodGet, "/api/v1/stats", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Resolve runs a simulated lookup
func (c *Client) Resolve(ctx context.Context, name string) (*Resolution, error) {
	var resp Resolution
	if err := c.send(ctx, http.MethodGet, "/api/v1/resolve/"+url.PathEscape(name), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Quote prices a registration without performing it
func (c *Client) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	var resp Quote
	if err := c.send(ctx, http.MethodPost, "/api/v1/quote", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ping checks that the server is reachable and the API key, if any, is accepted.
// It issues a write-route request that fails validation, so nothing is changed.
func (c *Client) Ping(ctx context.Context) error {
	err := c.send(ctx, http.MethodPut, "/api/v1/domains/-/publish", map[string]any{}, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
		return nil
	}
	return err
}

func (q HistoryQuery) encode() string {
	v := url.Values{}
	if q.Query != "" {
		v.Set("q", q.Query)
	}
	if q.Action != "" {
		v.Set("action", q.Action)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

func (c *Client) getRaw(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, c.parseError(resp)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) send(ctx context.Context, method, path string, body, result any) error {
	var buf io.Reader
	if body != nil {
		var b bytes.Buffer
		if err := json.NewEncoder(&b).Encode(body); err != nil {
			return err
		}
		buf = &b
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.parseError(resp)
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
}

func (c *Client) parseError(resp *http.Response) error {
	var errResp struct {
		Error APIError `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Error.Code == "" {
		return &APIError{StatusCode: resp.StatusCode, Code: "HTTP_" + strconv.Itoa(resp.StatusCode), Message: resp.Status}
	}
	errResp.Error.StatusCode = resp.StatusCode
	return &errResp.Error
}
