// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package kagi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestStartQRSignin(t *testing.T) {
	client, server := newTestKagiClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/signin" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`<div data-qr-token="pair token" data-csrf-token="csrf-1"></div>`))
	}))

	qr, err := client.StartQRSignin(context.Background())
	if err != nil {
		t.Fatalf("StartQRSignin() error = %v", err)
	}
	if qr.Token != "pair token" || qr.CSRF != "csrf-1" {
		t.Errorf("qr = %+v", qr)
	}
	// The pairing URL carries the token query-escaped.
	if qr.URL != server.URL+"/signin?n=pair+token" {
		t.Errorf("pairing URL = %q", qr.URL)
	}
}

func TestPollQRSignin(t *testing.T) {
	confirmed := false
	var gotCSRF, gotBody string

	client, _ := newTestKagiClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/signin/check" {
			http.NotFound(w, r)
			return
		}
		gotCSRF = r.Header.Get("X-CSRF-Token")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		if !confirmed {
			w.Write([]byte("WAIT"))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "kagi_session", Value: "sess-42", Path: "/"})
		w.Write([]byte("OK"))
	}))

	qr := &QRSignin{Token: "pair-1", CSRF: "csrf-1"}

	_, err := client.PollQRSignin(context.Background(), qr)
	if !errors.Is(err, ErrAuthPending) {
		t.Fatalf("PollQRSignin() error = %v, want ErrAuthPending", err)
	}
	if gotCSRF != "csrf-1" {
		t.Errorf("X-CSRF-Token = %q", gotCSRF)
	}
	if !strings.Contains(gotBody, `"n":"pair-1"`) {
		t.Errorf("poll body = %q", gotBody)
	}

	confirmed = true
	token, err := client.PollQRSignin(context.Background(), qr)
	if err != nil {
		t.Fatalf("PollQRSignin() error = %v", err)
	}
	if token != "sess-42" {
		t.Errorf("token = %q, want sess-42", token)
	}
	// The confirmed token is installed on the transport.
	if client.Transport().SessionToken() != "sess-42" {
		t.Errorf("transport token = %q", client.Transport().SessionToken())
	}
}

func TestPollQRSigninNoCookie(t *testing.T) {
	client, _ := newTestKagiClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	}))

	_, err := client.PollQRSignin(context.Background(), &QRSignin{Token: "p", CSRF: "c"})
	if err == nil {
		t.Fatal("PollQRSignin() error = nil, want missing-cookie error")
	}
	if errors.Is(err, ErrAuthPending) {
		t.Error("missing cookie misreported as pending")
	}
}
