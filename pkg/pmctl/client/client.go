package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"go.uber.org/zap"
)

const (
	// UserAgent mimics the browser the backend expects to see; requests with
	// a generic Go user agent get rejected by the edge.
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/131.0.0.0 Safari/537.36"

	// WebOrigin is sent as Origin/Referer on every backend call.
	WebOrigin = "https://playmetrics.com"

	defaultTimeout = 30 * time.Second
)

// Client is the data-plane client for the PlayMetrics API. Authentication
// headers come from the session set via SetSession; acquiring that session is
// the auth package's job.
type Client struct {
	baseURL       *url.URL
	httpClient    *http.Client
	buildVersion  string
	identityToken string
	accessKey     string
	log           *zap.SugaredLogger
}

type Option func(*Client) error

func New(opts ...Option) (*Client, error) {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.baseURL == nil {
		return nil, errors.New("server is required")
	}
	return c, nil
}

func WithServer(server string) Option {
	return func(c *Client) error {
		if server == "" {
			return errors.New("server is required")
		}
		parsed, err := url.Parse(server)
		if err != nil {
			return fmt.Errorf("invalid server: %w", err)
		}
		c.baseURL = parsed
		return nil
	}
}

func WithBuildVersion(buildVersion string) Option {
	return func(c *Client) error {
		c.buildVersion = buildVersion
		return nil
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) error {
		c.httpClient.Timeout = timeout
		return nil
	}
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Client) error {
		if log != nil {
			c.log = log
		}
		return nil
	}
}

// SetSession installs the credentials used on subsequent calls.
func (c *Client) SetSession(identityToken, accessKey string) {
	c.identityToken = identityToken
	c.accessKey = accessKey
}

// Probe issues one cheap authenticated read to check whether the capability
// key is still accepted. Any non-success status is invalid.
func (c *Client) Probe(ctx context.Context, identityToken, accessKey string) error {
	probe := &Client{
		baseURL:       c.baseURL,
		httpClient:    c.httpClient,
		buildVersion:  c.buildVersion,
		identityToken: identityToken,
		accessKey:     accessKey,
		log:           c.log,
	}
	var out any
	query := url.Values{"populate": []string{"num_players"}}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return probe.get(ctx, "/teams", query, &out)
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	fullURL := *c.baseURL
	fullURL.Path = path.Join(fullURL.Path, endpoint)
	if query != nil {
		fullURL.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("firebase-token", c.identityToken)
	req.Header.Set("build-version", c.buildVersion)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Origin", WebOrigin)
	req.Header.Set("Referer", WebOrigin+"/")
	if c.accessKey != "" {
		req.Header.Set("pm-access-key", c.accessKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &HTTPError{StatusCode: resp.StatusCode, Message: Truncate(string(body), 300)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("request failed (%d): %s", e.StatusCode, e.Message)
}

// Truncate caps diagnostic body excerpts.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
