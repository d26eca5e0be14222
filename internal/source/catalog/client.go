// Package catalog talks to the mod upload server.
package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"ocmods/internal/domain"
)

const (
	// DefaultBaseURL is the public mod server
	DefaultBaseURL = "https://mods.openclonk.org/api/"

	maxDocumentSize = 16 << 20
	maxErrorBody    = 1024
)

// SortKey selects the server-side ordering of search results
type SortKey string

const (
	SortNone    SortKey = ""
	SortTitle   SortKey = "title"
	SortUpdated SortKey = "updatedAt"
)

// ParseSortKey accepts "title", "updatedAt" and their "-" prefixed descending forms
func ParseSortKey(s string) (SortKey, bool, error) {
	desc := strings.HasPrefix(s, "-")
	switch key := SortKey(strings.TrimPrefix(s, "-")); key {
	case SortNone, SortTitle, SortUpdated:
		return key, desc && key != SortNone, nil
	default:
		return SortNone, false, fmt.Errorf("unknown sort key %q", s)
	}
}

// SearchQuery describes one page of an uploads search
type SearchQuery struct {
	Text       string
	Tags       []string
	Sort       SortKey
	Descending bool
	Limit      int
	Skip       int
}

// Encode returns the query string for the uploads endpoint
func (q SearchQuery) Encode() string {
	params := url.Values{}
	if text := strings.TrimSpace(q.Text); text != "" {
		params.Set("q", `"`+strings.ReplaceAll(text, `"`, `\"`)+`"`)
	}
	if len(q.Tags) > 0 {
		params.Set("tags", strings.Join(q.Tags, ","))
	}
	if q.Sort != SortNone {
		key := string(q.Sort)
		if q.Descending {
			key = "-" + key
		}
		params.Set("sort", key)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	params.Set("skip", strconv.Itoa(q.Skip))
	return params.Encode()
}

// Client issues catalog requests. At most one request per client is in flight.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string

	mu     sync.Mutex
	active *Request
}

// NewClient creates a catalog client for the given server base URL.
// If httpClient is nil, http.DefaultClient is used.
func NewClient(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    normalizeBase(baseURL),
		userAgent:  "ocmods",
	}
}

// SetUserAgent sets the User-Agent header sent with every request
func (c *Client) SetUserAgent(ua string) {
	c.userAgent = ua
}

// BaseURL returns the normalized server URL, always ending in "/"
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HTTPClient returns the transport used for requests
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Validate checks that the base URL can be used for requests
func (c *Client) Validate() error {
	u, err := url.Parse(c.baseURL)
	if err != nil || c.baseURL == "" {
		return fmt.Errorf("%w: %q", domain.ErrInvalidServer, c.baseURL)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", domain.ErrInvalidServer, c.baseURL)
	}
	return nil
}

// FileURL returns the download URL of a file handle
func (c *Client) FileURL(handle string) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	return c.baseURL + "files/" + url.PathEscape(handle), nil
}

// Search starts a query against the uploads endpoint
func (c *Client) Search(ctx context.Context, q SearchQuery) (*Request, error) {
	return c.Start(ctx, "uploads?"+q.Encode())
}

// Lookup starts a metadata request for a single mod
func (c *Client) Lookup(ctx context.Context, id string) (*Request, error) {
	return c.Start(ctx, "uploads/"+url.PathEscape(id))
}

// Start issues a GET for path relative to the base URL. The request runs in the
// background; poll the returned Request or wait on Done.
func (c *Client) Start(ctx context.Context, path string) (*Request, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil && c.active.Busy() {
		return nil, domain.ErrRequestOutstanding
	}

	reqCtx, cancel := context.WithCancel(ctx)
	r := &Request{
		url:    c.baseURL + strings.TrimPrefix(path, "/"),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.active = r

	go r.run(reqCtx, c)

	return r, nil
}

// Busy returns true while a request of this client is in flight
func (c *Client) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil && c.active.Busy()
}

// Cancel aborts the in-flight request, if any, and waits for it to release its connection
func (c *Client) Cancel() {
	c.mu.Lock()
	r := c.active
	c.active = nil
	c.mu.Unlock()

	if r != nil {
		r.Cancel()
	}
}

// fetch performs the GET and returns the body
func (c *Client) fetch(ctx context.Context, reqURL string) (body []byte, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", domain.ErrInvalidServer, err)
	}
	req.Header.Set("Accept", "application/xml")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: executing request: %w", domain.ErrTransport, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("%w: closing response body: %w", domain.ErrTransport, cerr)
		}
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %w", domain.ErrTransport, domain.ErrModNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrTransport, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", domain.ErrTransport, err)
	}
	return body, nil
}

func normalizeBase(base string) string {
	base = strings.TrimSpace(base)
	if base != "" && !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base
}
