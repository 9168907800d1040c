// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, server *httptest.Server, token string) *Client {
	t.Helper()
	c, err := NewClient(&Config{
		BaseURL:      server.URL,
		SessionToken: token,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestDoAppliesIdentityHeaders(t *testing.T) {
	var got http.Header
	var cookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		if c, err := r.Cookie(SessionCookieName); err == nil {
			cookie = c.Value
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	c := newTestClient(t, server, "secret-token")

	rc, err := c.Do(context.Background(), http.MethodGet, "/ping", nil, nil)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	rc.Close()

	if got.Get("Origin") != server.URL {
		t.Errorf("Origin = %q, want %q", got.Get("Origin"), server.URL)
	}
	if got.Get("Referer") != server.URL+"/" {
		t.Errorf("Referer = %q, want %q", got.Get("Referer"), server.URL+"/")
	}
	if got.Get("User-Agent") == "" {
		t.Error("User-Agent not set")
	}
	if got.Get(SessionHeaderName) != "secret-token" {
		t.Errorf("%s = %q, want %q", SessionHeaderName, got.Get(SessionHeaderName), "secret-token")
	}
	if cookie != "secret-token" {
		t.Errorf("session cookie = %q, want %q", cookie, "secret-token")
	}
}

func TestDoExtraHeadersOverride(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	c := newTestClient(t, server, "")

	extra := make(http.Header)
	extra.Set("Content-Type", "application/json")
	extra.Set("Accept", "application/vnd.kagi.stream")

	rc, err := c.Do(context.Background(), http.MethodPost, "/x", nil, extra)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	rc.Close()

	if got.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", got.Get("Content-Type"))
	}
	if got.Get("Accept") != "application/vnd.kagi.stream" {
		t.Errorf("Accept override lost: %q", got.Get("Accept"))
	}
	if got.Get(SessionHeaderName) != "" {
		t.Error("session header set without a token")
	}
}

func TestDoNonSuccessStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"not found", http.StatusNotFound},
		{"server error", http.StatusInternalServerError},
		{"redirect-ish", http.StatusPermanentRedirect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte("nope"))
			}))
			defer server.Close()

			c := newTestClient(t, server, "")
			c.plain.CheckRedirect = func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			}

			_, err := c.Do(context.Background(), http.MethodGet, "/x", nil, nil)
			if err == nil {
				t.Fatal("Do() error = nil, want status error")
			}
			if !IsStatus(err, tt.status) {
				t.Errorf("IsStatus(err, %d) = false; err = %v", tt.status, err)
			}
		})
	}
}

func TestDoConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse all connections

	c, err := NewClient(&Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	_, err = c.Do(context.Background(), http.MethodGet, "/x", nil, nil)
	if err == nil {
		t.Fatal("Do() error = nil, want connection error")
	}
	var terr *Error
	if !errors.As(err, &terr) || terr.Type != ErrTypeConnection {
		t.Errorf("error type = %v, want ErrTypeConnection", err)
	}
}

func TestDoCanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	c := newTestClient(t, server, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Do(ctx, http.MethodGet, "/x", nil, nil)
	if err == nil {
		t.Fatal("Do() error = nil, want timeout error")
	}
	if !IsTimeout(err) {
		t.Errorf("IsTimeout(err) = false; err = %v", err)
	}
}

func TestJarRetainsServerCookies(t *testing.T) {
	calls := 0
	var second string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.SetCookie(w, &http.Cookie{Name: "csrf", Value: "abc", Path: "/"})
		} else if c, err := r.Cookie("csrf"); err == nil {
			second = c.Value
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	c := newTestClient(t, server, "")

	for i := 0; i < 2; i++ {
		rc, err := c.Do(context.Background(), http.MethodGet, "/x", nil, nil)
		if err != nil {
			t.Fatalf("Do() #%d error = %v", i+1, err)
		}
		io.Copy(io.Discard, rc)
		rc.Close()
	}

	if second != "abc" {
		t.Errorf("second request cookie = %q, want %q", second, "abc")
	}
}

func TestSetSessionTokenSeedsCookie(t *testing.T) {
	var cookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(SessionCookieName); err == nil {
			cookie = c.Value
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	c := newTestClient(t, server, "")
	c.SetSessionToken("later-token")

	rc, err := c.Do(context.Background(), http.MethodGet, "/x", nil, nil)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	rc.Close()

	if cookie != "later-token" {
		t.Errorf("session cookie = %q, want %q", cookie, "later-token")
	}
	if c.SessionToken() != "later-token" {
		t.Errorf("SessionToken() = %q", c.SessionToken())
	}
}
