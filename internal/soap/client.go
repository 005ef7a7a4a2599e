package soap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/beevik/etree"
)

// Client posts SOAP requests to a single endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. The default is a client
// derived from http.DefaultClient; OAuth2 callers pass a client that injects
// the Bearer token.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// NewClient creates a client for the given endpoint URL.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the endpoint URL the client posts to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Call wraps body in an envelope, posts it with the given SOAPAction, and
// returns the operation response element from the reply. Extra headers (such
// as Authorization) are copied onto the request.
func (c *Client) Call(ctx context.Context, action string, body *etree.Element, header http.Header) (*etree.Element, error) {
	doc := Envelope(body)

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize request envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", `text/xml; charset=utf-8`)
	req.Header.Set("SOAPAction", fmt.Sprintf("%q", action))
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Set(key, value)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", c.endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// Faults come back as HTTP 500 with an envelope body, so parse before
	// rejecting on status.
	result, parseErr := parseResponse(data)
	if parseErr != nil {
		var fault *Fault
		if errors.As(parseErr, &fault) {
			return nil, parseErr
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(data))
		}
		return nil, parseErr
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	return result, nil
}
