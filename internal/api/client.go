// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Configuration constants for the Agri-Bot API.
const (
	// DefaultBaseURL is the local development server.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout bounds non-streaming requests.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize caps response bodies to prevent memory exhaustion
	// from a misbehaving server.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB

	// apiPrefix is prepended to every endpoint path.
	apiPrefix = "/api/v1"
)

// sharedHTTPClient is the pooled client for request/response calls.
// Streaming uses its own timeout-free client in the stream package.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
	Timeout: DefaultTimeout,
}

// Client talks to the Agri-Bot REST API.
//
// The bearer token is held explicitly on the client rather than in ambient
// process state, so tests and multiple accounts can run side by side.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client

	// limiter smooths bursts of session/message calls so a busy UI cannot
	// hammer the backend (which throttles at the gateway anyway).
	limiter *rate.Limiter
}

// NewClient creates a client for the given server. An empty baseURL selects
// DefaultBaseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: sharedHTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(10), 20),
	}
}

// WithToken sets the bearer token and returns the client for chaining.
func (c *Client) WithToken(token string) *Client {
	c.token = token
	return c
}

// WithHTTPClient overrides the HTTP client (tests).
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// BaseURL returns the configured server URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Token returns the current bearer token ("" when unauthenticated).
func (c *Client) Token() string { return c.token }

// IsAuthenticated reports whether a bearer token is set.
func (c *Client) IsAuthenticated() bool { return c.token != "" }

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// do issues a JSON request and decodes the response into out (when non-nil).
// Protected calls must go through doAuthed.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	u := c.baseURL + apiPrefix + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, MaxResponseSize)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(limited)
		return c.handleErrorResponse(resp.StatusCode, raw)
	}

	if out == nil {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, limited)
		return nil
	}
	if err := json.NewDecoder(limited).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// doAuthed is do plus the client-side token precondition.
func (c *Client) doAuthed(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c.token == "" {
		return ErrNotAuthenticated
	}
	return c.do(ctx, method, path, query, body, out)
}

// handleErrorResponse maps a non-2xx response to a sentinel or APIError,
// preferring the server's detail message when it parses.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var detail errorDetail
	message := ""
	if err := json.Unmarshal(body, &detail); err == nil && detail.Detail != "" {
		message = detail.Detail
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		if message != "" {
			return fmt.Errorf("%w: %s", ErrAuthFailed, message)
		}
		return ErrAuthFailed
	case http.StatusNotFound:
		if message != "" {
			return fmt.Errorf("%w: %s", ErrNotFound, message)
		}
		return ErrNotFound
	case http.StatusTooManyRequests:
		if message != "" {
			return fmt.Errorf("%w: %s", ErrRateLimited, message)
		}
		return ErrRateLimited
	}

	if message == "" {
		message = strings.TrimSpace(string(body))
	}
	return &APIError{Status: statusCode, Message: message}
}

// pageQuery converts a Page into skip/limit query parameters.
func pageQuery(p Page) url.Values {
	if p.Limit <= 0 {
		p = DefaultPage
	}
	q := url.Values{}
	q.Set("skip", strconv.Itoa(p.Skip))
	q.Set("limit", strconv.Itoa(p.Limit))
	return q
}
