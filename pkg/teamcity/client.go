package teamcity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds every request.
const DefaultTimeout = 5 * time.Second

var (
	// ErrNoBuilds is returned when a build configuration has no builds.
	ErrNoBuilds = errors.New("no builds found")

	// ErrMalformedResponse is returned when a response decodes but lacks
	// fields the client relies on.
	ErrMalformedResponse = errors.New("malformed response")
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Client talks to the TeamCity REST API with a bearer token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// New creates a client for the server at baseURL.
func New(baseURL, token string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server root the client was configured with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// LatestBuild returns the newest build of buildType.
func (c *Client) LatestBuild(ctx context.Context, buildType string) (*BuildSummary, error) {
	q := url.Values{}
	q.Set("locator", LatestBuildLocator(buildType))

	var list buildList
	if err := c.get(ctx, BuildsPath, q, &list); err != nil {
		return nil, err
	}
	if len(list.Build) == 0 {
		return nil, fmt.Errorf("%s: %w", buildType, ErrNoBuilds)
	}
	b := list.Build[0]
	if b.ID <= 0 {
		return nil, fmt.Errorf("%s: build without id: %w", buildType, ErrMalformedResponse)
	}
	return &b, nil
}

// Build returns the build with the given id.
func (c *Client) Build(ctx context.Context, id int64) (*Build, error) {
	var b Build
	if err := c.get(ctx, BuildsPath+"/id:"+strconv.FormatInt(id, 10), nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, v any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w: %w", path, ErrMalformedResponse, err)
	}
	return nil
}
