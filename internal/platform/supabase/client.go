package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is the entry point to the platform APIs.
type Client struct {
	config     Config
	httpClient *http.Client

	baseURL    string
	restURL    string
	authURL    string
	storageURL string

	auth     *AuthClient
	database *DatabaseClient
	storage  *StorageClient
}

// New creates a platform client.
func New(cfg Config) (*Client, error) {
	if cfg.ProjectURL == "" {
		return nil, fmt.Errorf("project URL is required")
	}
	if cfg.AnonKey == "" {
		return nil, fmt.Errorf("anon key is required")
	}

	baseURL := strings.TrimRight(cfg.ProjectURL, "/")
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid project URL: %w", err)
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	c := &Client{
		config:     cfg,
		httpClient: httpClient,
		baseURL:    baseURL,
		restURL:    baseURL + "/rest/v1",
		authURL:    baseURL + "/auth/v1",
		storageURL: baseURL + "/storage/v1",
	}
	c.auth = &AuthClient{client: c}
	c.database = &DatabaseClient{client: c}
	c.storage = &StorageClient{client: c}
	return c, nil
}

// Auth returns the auth client.
func (c *Client) Auth() *AuthClient { return c.auth }

// Database returns the database client.
func (c *Client) Database() *DatabaseClient { return c.database }

// Storage returns the storage client.
func (c *Client) Storage() *StorageClient { return c.storage }

// BaseURL returns the platform base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// AnonKey returns the anon API key.
func (c *Client) AnonKey() string { return c.config.AnonKey }

// request performs an HTTP request authorized with the anon key.
func (c *Client) request(ctx context.Context, method, urlStr string, body []byte, headers map[string]string) ([]byte, int, error) {
	return c.do(ctx, method, urlStr, body, headers, c.config.AnonKey)
}

// requestWithToken performs an HTTP request authorized with a user token.
// Row-level security applies to the token's identity.
func (c *Client) requestWithToken(ctx context.Context, method, urlStr string, body []byte, headers map[string]string, accessToken string) ([]byte, int, error) {
	return c.do(ctx, method, urlStr, body, headers, accessToken)
}

// requestWithServiceKey performs an HTTP request with the service role key.
func (c *Client) requestWithServiceKey(ctx context.Context, method, urlStr string, body []byte, headers map[string]string) ([]byte, int, error) {
	if c.config.ServiceKey == "" {
		return nil, 0, fmt.Errorf("service key not configured")
	}
	return c.do(ctx, method, urlStr, body, headers, c.config.ServiceKey)
}

func (c *Client) do(ctx context.Context, method, urlStr string, body []byte, headers map[string]string, bearer string) ([]byte, int, error) {
	attempt := 0
	for {
		respBody, statusCode, err := c.doOnce(ctx, method, urlStr, body, headers, bearer)
		if !c.config.Retry.shouldRetry(method, statusCode, err, attempt) {
			return respBody, statusCode, err
		}
		attempt++
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		case <-time.After(c.config.Retry.backoff(attempt)):
		}
	}
}

func (c *Client) doOnce(ctx context.Context, method, urlStr string, body []byte, headers map[string]string, bearer string) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("apikey", c.config.AnonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.config.DefaultHeaders {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return respBody, resp.StatusCode, nil
}

// parseError decodes a PostgREST or GoTrue error body.
func parseError(body []byte, statusCode int) error {
	var errResp struct {
		Code             string `json:"code"`
		Message          string `json:"message"`
		Details          string `json:"details"`
		Hint             string `json:"hint"`
		Err              string `json:"error"`
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
	}

	if err := json.Unmarshal(body, &errResp); err != nil {
		return &Error{
			Code:       "unknown",
			Message:    string(body),
			StatusCode: statusCode,
		}
	}

	msg := errResp.Message
	if msg == "" {
		msg = errResp.Err
	}
	if msg == "" {
		msg = errResp.ErrorDescription
	}
	if msg == "" {
		msg = errResp.Msg
	}

	return &Error{
		Code:       errResp.Code,
		Message:    msg,
		Details:    errResp.Details,
		Hint:       errResp.Hint,
		StatusCode: statusCode,
	}
}
