package cloud

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Production API endpoint constants. These mirror the vendor mobile
// app's traffic.
const (
	defaultBaseURL   = "https://ynk95r1v52.execute-api.us-east-1.amazonaws.com"
	apiPathPrefix    = "prod_v1"
	defaultUserAgent = "HaloBridge/1.0"

	defaultTimeout = 30 * time.Second
)

// TokenSource supplies the bearer token for API requests. The
// auth.Session implements it.
type TokenSource interface {
	Bearer() string
}

// Client is the remote device API client.
//
// Every request captures the bearer token once from the TokenSource,
// so a refresh happening mid-call does not split a request across two
// tokens. The client performs no retries and no token refreshes of its
// own; transport errors and non-2xx statuses surface to the caller.
type Client struct {
	baseURL string
	tokens  TokenSource
	http    *http.Client
}

// NewClient creates an API client.
//
// Parameters:
//   - baseURL: API origin; empty selects the production endpoint
//   - tokens: bearer token source (the live session)
//   - timeout: per-request timeout; zero selects the default
func NewClient(baseURL string, tokens TokenSource, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http:    &http.Client{Timeout: timeout},
	}
}

// StatusError is returned for non-2xx API responses.
type StatusError struct {
	StatusCode int
	Method     string
	Path       string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api %s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// do performs one API request and decodes the JSON response into out.
//
// The path is relative to the versioned prefix (e.g. "users/me/homes").
// A nil out discards the response body.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding api request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	url := fmt.Sprintf("%s/%s/%s", c.baseURL, apiPathPrefix, path)
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("building api request: %w", err)
	}

	// Capture the token once per call.
	req.Header.Set("Authorization", "Bearer "+c.tokens.Bearer())
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept-Encoding", "gzip")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	// Setting Accept-Encoding ourselves opts out of the transport's
	// transparent decompression, so a gzipped body must be unwrapped here.
	reader := io.Reader(resp.Body)
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("opening gzip api response: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	respBody, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("reading api response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Body:       string(respBody),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decoding api response %s %s: %w", method, path, err)
	}

	return nil
}
