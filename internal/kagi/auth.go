// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kagi implements the protocol client for the Kagi Assistant
// service.
package kagi

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jeranaias/kagi-tui/internal/transport"
)

// =============================================================================
// QR SIGN-IN CEREMONY
// =============================================================================

// QRSignin holds the state of one pairing attempt: the pairing token shown
// to the user (as a URL to open on an authenticated device) and the CSRF
// token the poll endpoint requires.
type QRSignin struct {
	Token string
	CSRF  string
	URL   string
}

// StartQRSignin fetches the sign-in page and scrapes the token/CSRF pair
// from its pairing element.
func (c *Client) StartQRSignin(ctx context.Context) (*QRSignin, error) {
	rc, err := c.tr.Do(ctx, http.MethodGet, pathSignin, nil, nil)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	page, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}

	token, csrf, err := parseSigninPage(string(page))
	if err != nil {
		return nil, err
	}

	return &QRSignin{
		Token: token,
		CSRF:  csrf,
		URL:   c.tr.BaseURL() + pathSignin + "?n=" + url.QueryEscape(token),
	}, nil
}

// PollQRSignin asks the check endpoint whether the pairing has been
// confirmed. On the literal "OK" response it extracts the session token
// from the cookie jar, falling back to a raw Set-Cookie prefix match, and
// installs it on the transport. Until then it returns ErrAuthPending.
func (c *Client) PollQRSignin(ctx context.Context, qr *QRSignin) (string, error) {
	extra := jsonHeader()
	extra.Set("X-CSRF-Token", qr.CSRF)

	resp, err := c.tr.DoRaw(ctx, http.MethodPost, pathSigninCheck, strings.NewReader(`{"n":"`+qr.Token+`"}`), extra)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(string(body)) != "OK" {
		return "", ErrAuthPending
	}

	token := c.sessionFromJar()
	if token == "" {
		token = sessionFromHeaders(resp.Header)
	}
	if token == "" {
		return "", &Error{Type: ErrTypeAuth, Message: "sign-in confirmed but no session cookie received"}
	}

	c.tr.SetSessionToken(ExtractToken(token))
	return c.tr.SessionToken(), nil
}

// sessionFromJar looks up the session cookie retained by the jar.
func (c *Client) sessionFromJar() string {
	base, err := url.Parse(c.tr.BaseURL())
	if err != nil {
		return ""
	}
	for _, cookie := range c.tr.Jar().Cookies(base) {
		if cookie.Name == transport.SessionCookieName {
			return cookie.Value
		}
	}
	return ""
}

// sessionFromHeaders falls back to a literal prefix match over raw
// Set-Cookie headers, for responses whose cookie attributes keep the jar
// from retaining them.
func sessionFromHeaders(h http.Header) string {
	prefix := transport.SessionCookieName + "="
	for _, raw := range h.Values("Set-Cookie") {
		if !strings.HasPrefix(raw, prefix) {
			continue
		}
		value := raw[len(prefix):]
		if semi := strings.IndexByte(value, ';'); semi >= 0 {
			value = value[:semi]
		}
		return value
	}
	return ""
}
