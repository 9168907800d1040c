// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport provides the HTTP layer shared by every remote call.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// Configuration constants for the remote service.
const (
	// DefaultBaseURL is the fixed remote host all requests go to.
	DefaultBaseURL = "https://kagi.com"

	// DefaultConnectTimeout bounds connection establishment. Body reads on
	// streaming calls have no timeout; cancellation is the only bound there.
	DefaultConnectTimeout = 30 * time.Second

	// DefaultRequestTimeout bounds plain (non-streaming) exchanges.
	DefaultRequestTimeout = 30 * time.Second

	// SessionCookieName is the cookie under which the service expects the
	// session token.
	SessionCookieName = "kagi_session"

	// SessionHeaderName carries the session token explicitly on every
	// request, independent of the cookie jar.
	SessionHeaderName = "X-Kagi-Session"

	defaultUserAgent = "kagi-tui/1.0 (terminal)"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// Config holds configuration options for the transport client.
type Config struct {
	// BaseURL of the remote service (default: https://kagi.com)
	BaseURL string

	// SessionToken is sent as both a cookie and an explicit header.
	SessionToken string

	// ConnectTimeout for establishing connections (default: 30s)
	ConnectTimeout time.Duration

	// RequestTimeout for non-streaming requests (default: 30s)
	RequestTimeout time.Duration

	// UserAgent override (default: kagi-tui)
	UserAgent string
}

// DefaultConfig returns the default transport configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        DefaultBaseURL,
		ConnectTimeout: DefaultConnectTimeout,
		RequestTimeout: DefaultRequestTimeout,
		UserAgent:      defaultUserAgent,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client performs HTTP exchanges against the remote service.
//
// The cookie jar and base header set are shared and effectively immutable
// after construction; the Client is safe for concurrent use.
type Client struct {
	config *Config
	jar    *cookiejar.Jar

	// plain is used for bounded request/response calls.
	plain *http.Client

	// streaming has no overall timeout; lifetime is bounded by the
	// caller's context and explicit Close of the returned body.
	streaming *http.Client
}

// NewClient creates a transport client with the given configuration.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	if config.UserAgent == "" {
		config.UserAgent = defaultUserAgent
	}

	// In-memory jar: cookies received are retained per host and reused on
	// subsequent requests. Nothing is persisted.
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	dialer := &net.Dialer{Timeout: config.ConnectTimeout}

	// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
	// SECURITY: TLS verification required for production.
	makeTransport := func() *http.Transport {
		return &http.Transport{
			DialContext:         dialer.DialContext,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		}
	}

	c := &Client{
		config: config,
		jar:    jar,
		plain: &http.Client{
			Transport: makeTransport(),
			Jar:       jar,
			Timeout:   config.RequestTimeout,
		},
		streaming: &http.Client{
			Transport: makeTransport(),
			Jar:       jar,
			// No timeout: streaming bodies are arbitrarily long-lived.
		},
	}

	if config.SessionToken != "" {
		c.seedSessionCookie()
	}

	return c, nil
}

// SetSessionToken replaces the session token after sign-in.
func (c *Client) SetSessionToken(token string) {
	c.config.SessionToken = token
	c.seedSessionCookie()
}

// SessionToken returns the current session token, if any.
func (c *Client) SessionToken() string {
	return c.config.SessionToken
}

// Jar exposes the shared cookie jar for post-auth cookie extraction.
func (c *Client) Jar() http.CookieJar {
	return c.jar
}

// BaseURL returns the configured remote host.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// seedSessionCookie stores the session token in the jar so it rides along
// as a cookie in addition to the explicit header.
func (c *Client) seedSessionCookie() {
	u, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return
	}
	c.jar.SetCookies(u, []*http.Cookie{{
		Name:  SessionCookieName,
		Value: c.config.SessionToken,
		Path:  "/",
	}})
}

// =============================================================================
// REQUESTS
// =============================================================================

// applyHeaders sets the fixed identity headers, the session header, and any
// per-request overrides.
func (c *Client) applyHeaders(req *http.Request, extra http.Header) {
	req.Header.Set("Origin", c.config.BaseURL)
	req.Header.Set("Referer", c.config.BaseURL+"/")
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Cache-Control", "no-cache")
	if c.config.SessionToken != "" {
		req.Header.Set(SessionHeaderName, c.config.SessionToken)
	}
	for key, values := range extra {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
}

// Do performs a bounded request and returns the open response body on any
// 2xx status. The caller owns closing the returned body.
func (c *Client) Do(ctx context.Context, method, target string, body io.Reader, extra http.Header) (io.ReadCloser, error) {
	resp, err := c.exchange(ctx, c.plain, method, target, body, extra)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// DoRaw performs a bounded request and returns the full response so callers
// can inspect headers (Set-Cookie extraction during sign-in). The caller
// owns closing resp.Body.
func (c *Client) DoRaw(ctx context.Context, method, target string, body io.Reader, extra http.Header) (*http.Response, error) {
	return c.exchange(ctx, c.plain, method, target, body, extra)
}

// Stream performs a request on the streaming client and returns the open
// response body. There is no read timeout; the caller must close the body
// (normal completion, error, or abandonment) to release the connection.
func (c *Client) Stream(ctx context.Context, method, target string, body io.Reader, extra http.Header) (io.ReadCloser, error) {
	resp, err := c.exchange(ctx, c.streaming, method, target, body, extra)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// exchange builds, applies headers to, and executes one request, mapping
// failures into the transport error taxonomy.
func (c *Client) exchange(ctx context.Context, hc *http.Client, method, target string, body io.Reader, extra http.Header) (*http.Response, error) {
	if !strings.HasPrefix(target, "http") {
		target = c.config.BaseURL + target
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, &Error{Type: ErrTypeConnection, URL: target, Message: "failed to create request", Cause: err}
	}
	c.applyHeaders(req, extra)

	resp, err := hc.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, &Error{Type: ErrTypeTimeout, URL: target, Message: "request timed out", Cause: err}
		}
		return nil, &Error{Type: ErrTypeConnection, URL: target, Message: "request failed", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Resource safety: callers never see a body they did not ask for.
		drainAndClose(resp.Body)
		return nil, &Error{
			Type:       ErrTypeStatus,
			StatusCode: resp.StatusCode,
			URL:        target,
			Message:    "unexpected status " + resp.Status,
		}
	}

	if resp.Body == nil {
		return nil, &Error{Type: ErrTypeEmptyBody, StatusCode: resp.StatusCode, URL: target, Message: "response has no body"}
	}

	return resp, nil
}

// drainAndClose consumes and closes a response body so the underlying
// connection can be reused.
func drainAndClose(r io.ReadCloser) {
	io.Copy(io.Discard, r)
	r.Close()
}
