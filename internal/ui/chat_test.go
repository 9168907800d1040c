// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"testing"

	"github.com/jeranaias/kagi-tui/internal/convo"
	"github.com/jeranaias/kagi-tui/internal/kagi"
)

func TestEditTarget(t *testing.T) {
	messages := []convo.Message{
		{ID: "u1", Role: convo.RoleUser, Content: "first question"},
		{ID: "a1", Role: convo.RoleAssistant, Content: "first answer"},
		{ID: "u2", Role: convo.RoleUser, Content: "second question"},
		{ID: "a2", Role: convo.RoleAssistant, Content: "second answer"},
		{ID: "u3", Role: convo.RoleUser, Content: "third question"},
	}

	tests := []struct {
		name   string
		arg    string
		wantID string
		wantOK bool
	}{
		{"no arg picks most recent", "", "u3", true},
		{"index counts from the top", "1", "u1", true},
		{"index skips assistant replies", "2", "u2", true},
		{"last index", "3", "u3", true},
		{"index past the end", "4", "", false},
		{"zero index", "0", "", false},
		{"negative index", "-1", "", false},
		{"non-numeric arg", "latest", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := editTarget(messages, tt.arg)
			if ok != tt.wantOK {
				t.Fatalf("editTarget(%q) ok = %v, want %v", tt.arg, ok, tt.wantOK)
			}
			if got.ID != tt.wantID {
				t.Errorf("editTarget(%q) id = %q, want %q", tt.arg, got.ID, tt.wantID)
			}
		})
	}
}

func TestEditTargetEmptyTranscript(t *testing.T) {
	if _, ok := editTarget(nil, ""); ok {
		t.Error("editTarget on empty transcript reported a match")
	}
}

func TestDocumentLabel(t *testing.T) {
	tests := []struct {
		name string
		doc  kagi.Document
		want string
	}{
		{
			name: "plain url passes through",
			doc:  kagi.Document{Name: "report.pdf", URL: "https://example.com/report.pdf"},
			want: "report.pdf",
		},
		{
			name: "data uri reports decoded size",
			doc:  kagi.Document{Name: "notes.txt", URL: "data:text/plain;base64,aGVsbG8="},
			want: "notes.txt (5 bytes)",
		},
		{
			name: "corrupt data uri is flagged",
			doc:  kagi.Document{Name: "notes.txt", URL: "data:text/plain;base64,%%%"},
			want: "notes.txt (unreadable)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := documentLabel(tt.doc); got != tt.want {
				t.Errorf("documentLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}
