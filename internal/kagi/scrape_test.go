// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package kagi

import (
	"strings"
	"testing"
)

func TestParseThreadList(t *testing.T) {
	fragment := `
		<div class="thread-group">
			<h3>Today</h3>
			<div data-code="t1"><span class="thread-title">Trip planning</span><span class="thread-excerpt">Where to go...</span></div>
			<div data-code="t2"><span class="thread-title">Groceries</span></div>
		</div>
		<div class="thread-group">
			<h3>Last week</h3>
			<div data-code="t3"><span class="thread-title">Old chat</span></div>
			<div><span class="thread-title">no id, skipped</span></div>
		</div>`

	groups, err := parseThreadList(fragment)
	if err != nil {
		t.Fatalf("parseThreadList() error = %v", err)
	}

	if len(groups) != 2 {
		t.Fatalf("group count = %d, want 2: %+v", len(groups), groups)
	}
	if groups[0].Label != "Today" || groups[1].Label != "Last week" {
		t.Errorf("labels = %q, %q", groups[0].Label, groups[1].Label)
	}
	if len(groups[0].Threads) != 2 || len(groups[1].Threads) != 1 {
		t.Fatalf("thread counts = %d, %d, want 2, 1", len(groups[0].Threads), len(groups[1].Threads))
	}

	first := groups[0].Threads[0]
	if first.ID != "t1" || first.Title != "Trip planning" || first.Excerpt != "Where to go..." {
		t.Errorf("first entry = %+v", first)
	}
	if groups[1].Threads[0].ID != "t3" {
		t.Errorf("second group entry = %+v", groups[1].Threads[0])
	}
}

func TestParseThreadListEmpty(t *testing.T) {
	groups, err := parseThreadList("<div>nothing here</div>")
	if err != nil {
		t.Fatalf("parseThreadList() error = %v", err)
	}
	if len(groups) != 0 {
		t.Errorf("groups = %+v, want none", groups)
	}
}

func TestParseCompanions(t *testing.T) {
	page := `
		<div class="companion-card">
			<input type="hidden" value="comp-1">
			<svg viewBox="0 0 10 10"><circle r="4"/></svg>
			<h3>Research</h3>
		</div>
		<div class="companion-card">
			<input type="hidden" value="comp-2">
			<h3>Code</h3>
		</div>
		<div class="companion-card">
			<h3>no id, skipped</h3>
		</div>`

	companions, err := parseCompanions(page)
	if err != nil {
		t.Fatalf("parseCompanions() error = %v", err)
	}

	if len(companions) != 2 {
		t.Fatalf("companion count = %d, want 2: %+v", len(companions), companions)
	}
	if companions[0].ID != "comp-1" || companions[0].Name != "Research" {
		t.Errorf("companion[0] = %+v", companions[0])
	}
	// The icon markup is carried verbatim, never interpreted.
	if !strings.Contains(companions[0].Icon, "<svg") || !strings.Contains(companions[0].Icon, "circle") {
		t.Errorf("icon = %q, want inline svg markup", companions[0].Icon)
	}
	if companions[1].Icon != "" {
		t.Errorf("companion[1].Icon = %q, want empty", companions[1].Icon)
	}
}

func TestParseAccountPage(t *testing.T) {
	tests := []struct {
		name      string
		page      string
		wantAuth  bool
		wantEmail string
	}{
		{
			"authenticated",
			`<form><input name="account_email" value="user@example.com"></form>`,
			true, "user@example.com",
		},
		{
			"signed out",
			`<form><input name="username"></form>`,
			false, "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth, email, err := parseAccountPage(tt.page)
			if err != nil {
				t.Fatalf("parseAccountPage() error = %v", err)
			}
			if auth != tt.wantAuth || email != tt.wantEmail {
				t.Errorf("parseAccountPage() = (%v, %q), want (%v, %q)", auth, email, tt.wantAuth, tt.wantEmail)
			}
		})
	}
}

func TestParseSigninPage(t *testing.T) {
	token, csrf, err := parseSigninPage(`<div data-qr-token="pair-123" data-csrf-token="csrf-456"></div>`)
	if err != nil {
		t.Fatalf("parseSigninPage() error = %v", err)
	}
	if token != "pair-123" || csrf != "csrf-456" {
		t.Errorf("parseSigninPage() = (%q, %q)", token, csrf)
	}

	if _, _, err := parseSigninPage("<div>no pairing element</div>"); err == nil {
		t.Error("parseSigninPage() error = nil for page without pairing element")
	}
	if _, _, err := parseSigninPage(`<div data-qr-token="x"></div>`); err == nil {
		t.Error("parseSigninPage() error = nil for missing csrf attribute")
	}
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"token=abc123&other=1", "abc123"},
		{"https://kagi.com/?token=xyz", "xyz"},
		{"prefix token=a&token=b", "a"},
		{"plain-session-value", "plain-session-value"},
		{"token=", ""},
	}

	for _, tt := range tests {
		if got := ExtractToken(tt.in); got != tt.want {
			t.Errorf("ExtractToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
