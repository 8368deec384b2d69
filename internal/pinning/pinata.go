package pinning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// PinataClient pins content through the Pinata HTTP API
type PinataClient struct {
	baseURL    string
	apiKey     string
	secret     string
	gateway    string
	maxRetries uint64
	httpClient *http.Client
	logger     *slog.Logger
}

// PinataOption configures a PinataClient
type PinataOption func(*PinataClient)

// WithGateway sets the gateway used for links
func WithGateway(gateway string) PinataOption {
	return func(c *PinataClient) {
		if gateway != "" {
			c.gateway = gateway
		}
	}
}

// WithMaxRetries sets how many times a failed request is retried
func WithMaxRetries(n int) PinataOption {
	return func(c *PinataClient) {
		if n >= 0 {
			c.maxRetries = uint64(n)
		}
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(hc *http.Client) PinataOption {
	return func(c *PinataClient) { c.httpClient = hc }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) PinataOption {
	return func(c *PinataClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewPinataClient creates a client for the API at baseURL
func NewPinataClient(baseURL, apiKey, secret string, opts ...PinataOption) *PinataClient {
	c := &PinataClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		secret:     secret,
		gateway:    "https://gateway.pinata.cloud",
		maxRetries: 3,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PinataError is a non-2xx answer from the API
type PinataError struct {
	StatusCode int
	Body       string
}

func (e *PinataError) Error() string {
	return fmt.Sprintf("pinata: HTTP %d: %s", e.StatusCode, e.Body)
}

type pinJSONRequest struct {
	PinataContent  any            `json:"pinataContent"`
	PinataMetadata pinataMetadata `json:"pinataMetadata"`
}

type pinataMetadata struct {
	Name string `json:"name"`
}

type pinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// PinJSON pins v under name and returns the CID reported by the API
func (c *PinataClient) PinJSON(ctx context.Context, name string, v any) (string, error) {
	body, err := json.Marshal(pinJSONRequest{
		PinataContent:  v,
		PinataMetadata: pinataMetadata{Name: name},
	})
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", name, err)
	}

	var resp pinResponse
	if err := c.call(ctx, http.MethodPost, "/pinning/pinJSONToIPFS", body, &resp); err != nil {
		return "", err
	}

	parsed, err := ParseCID(resp.IpfsHash)
	if err != nil {
		return "", fmt.Errorf("pinata returned %q: %w", resp.IpfsHash, err)
	}
	c.logger.Debug("pinned content", "name", name, "cid", parsed.String(), "size", resp.PinSize)
	return parsed.String(), nil
}

// Unpin removes the pin for cid
func (c *PinataClient) Unpin(ctx context.Context, cid string) error {
	if _, err := ParseCID(cid); err != nil {
		return err
	}
	return c.call(ctx, http.MethodDelete, "/pinning/unpin/"+url.PathEscape(cid), nil, nil)
}

// GatewayURL returns the public gateway link for cid
func (c *PinataClient) GatewayURL(cid string) string {
	return gatewayURL(c.gateway, cid)
}

// call performs one API request with retries on transport errors and 5xx/429 answers
func (c *PinataClient) call(ctx context.Context, method, path string, body []byte, result any) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx)

	op := func() error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("pinata_api_key", c.apiKey)
		req.Header.Set("pinata_secret_api_key", c.secret)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			perr := &PinataError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return perr
			}
			return backoff.Permanent(perr)
		}

		if result != nil {
			if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
				return backoff.Permanent(fmt.Errorf("decoding pinata response: %w", err))
			}
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("pinata request failed, retrying", "method", method, "path", path, "error", err, "wait", wait)
	}
	return backoff.RetryNotify(op, policy, notify)
}
