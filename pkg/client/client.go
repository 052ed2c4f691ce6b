// Package client is a thin HTTP client for cmd/jc-server's REST API: create a
// named scenario site, emit molecules into it, and read back its state.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client talks to a single jc-server instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the default *http.Client, e.g. to set a transport
// with custom TLS config or timeouts.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New builds a Client pointed at baseURL (e.g. "http://localhost:8080").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{baseURL: baseURL, httpClient: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	u, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("building URL: %w", err)
	}
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	return resp, nil
}

func errorFromResponse(resp *http.Response) error {
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
}

// CreateSite starts a new scenario site on the server. kind is one of
// "counter", "single-access", "readers-writer".
func (c *Client) CreateSite(ctx context.Context, name, kind string) error {
	resp, err := c.do(ctx, http.MethodPost, "/sites", nil, map[string]string{
		"name": name,
		"kind": kind,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errorFromResponse(resp)
	}
	return nil
}

// DeleteSite shuts down and removes a site.
func (c *Client) DeleteSite(ctx context.Context, name string) error {
	u, err := url.JoinPath("/sites", name)
	if err != nil {
		return fmt.Errorf("building URL: %w", err)
	}
	resp, err := c.do(ctx, http.MethodDelete, u, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errorFromResponse(resp)
	}
	return nil
}

// ListSites returns the names of all sites currently running on the server.
func (c *Client) ListSites(ctx context.Context) ([]string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/sites", nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errorFromResponse(resp)
	}

	var decoded struct {
		Sites []string `json:"sites"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return decoded.Sites, nil
}

// Emit sends a non-blocking emission of payload through the named molecule.
func (c *Client) Emit(ctx context.Context, site, molecule string, payload any) error {
	u, err := url.JoinPath("/sites", site, "emit", molecule)
	if err != nil {
		return fmt.Errorf("building URL: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, u, nil, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errorFromResponse(resp)
	}
	return nil
}

// ErrTimedOut is returned by EmitBlocking when the server reports its wait
// exceeded the given timeout before a reply arrived.
var ErrTimedOut = fmt.Errorf("jc-server: emit-blocking timed out")

// EmitBlocking sends a blocking emission and waits up to timeout for a reply,
// returning the decoded reply value.
func (c *Client) EmitBlocking(ctx context.Context, site, molecule string, payload any, timeout time.Duration) (any, error) {
	u, err := url.JoinPath("/sites", site, "emit-blocking", molecule)
	if err != nil {
		return nil, fmt.Errorf("building URL: %w", err)
	}

	query := url.Values{}
	if timeout > 0 {
		query.Set("timeout_ms", strconv.FormatInt(timeout.Milliseconds(), 10))
	}

	resp, err := c.do(ctx, http.MethodPost, u, query, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusRequestTimeout {
		return nil, ErrTimedOut
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errorFromResponse(resp)
	}

	var decoded struct {
		Value any `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return decoded.Value, nil
}

// VolatileValue reads the current, possibly transient, value of a volatile
// molecule without consuming it.
func (c *Client) VolatileValue(ctx context.Context, site, molecule string) (any, error) {
	u, err := url.JoinPath("/sites", site, "volatile", molecule)
	if err != nil {
		return nil, fmt.Errorf("building URL: %w", err)
	}
	resp, err := c.do(ctx, http.MethodGet, u, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errorFromResponse(resp)
	}

	var decoded struct {
		Value any `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return decoded.Value, nil
}

// LogSoup returns the site's human-readable bag contents, as rendered by
// ReactionSite.LogSoup on the server.
func (c *Client) LogSoup(ctx context.Context, site string) (string, error) {
	u, err := url.JoinPath("/sites", site, "soup")
	if err != nil {
		return "", fmt.Errorf("building URL: %w", err)
	}
	resp, err := c.do(ctx, http.MethodGet, u, nil, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errorFromResponse(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	return string(data), nil
}
