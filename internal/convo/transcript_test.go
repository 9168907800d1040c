// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package convo

import (
	"testing"
)

func buildTranscript(exchanges ...string) *Transcript {
	t := NewTranscript()
	for _, id := range exchanges {
		t.Append(&Message{ID: id, Role: RoleUser, Content: "prompt " + id})
		t.Append(&Message{ID: ReplyID(id), Role: RoleAssistant, Content: "reply " + id})
	}
	return t
}

func TestFindByIDPrefersTail(t *testing.T) {
	tr := buildTranscript("a", "b")

	// The tail is the reply of the last exchange.
	if got := tr.FindByID(ReplyID("b")); got == nil || got.Content != "reply b" {
		t.Errorf("FindByID(tail) = %+v", got)
	}
	// Earlier messages are still found by the scan.
	if got := tr.FindByID("a"); got == nil || got.Content != "prompt a" {
		t.Errorf("FindByID(head) = %+v", got)
	}
	if got := tr.FindByID("missing"); got != nil {
		t.Errorf("FindByID(missing) = %+v, want nil", got)
	}
}

func TestReassignIDMovesBothHalves(t *testing.T) {
	tr := buildTranscript("placeholder")

	tr.ReassignID("placeholder", "server-id")

	if tr.FindByID("placeholder") != nil || tr.FindByID(ReplyID("placeholder")) != nil {
		t.Error("old identity still present after reassignment")
	}

	user := tr.FindByID("server-id")
	reply := tr.FindByID(ReplyID("server-id"))
	if user == nil || reply == nil {
		t.Fatal("new identity not present on both halves")
	}
	if user.Provisional || reply.Provisional {
		t.Error("reassigned messages still marked provisional")
	}
	// Content is untouched by reassignment.
	if user.Content != "prompt placeholder" || reply.Content != "reply placeholder" {
		t.Errorf("content changed: %q, %q", user.Content, reply.Content)
	}
}

func TestTruncateBefore(t *testing.T) {
	tr := buildTranscript("a", "b", "c")

	removed := tr.TruncateBefore("b")
	if removed == nil || removed.ID != "b" {
		t.Fatalf("removed = %+v, want message b", removed)
	}
	if tr.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tr.Len())
	}
	if tr.FindByID("b") != nil || tr.FindByID("c") != nil {
		t.Error("truncated messages still present")
	}
	if tr.FindByID("a") == nil || tr.FindByID(ReplyID("a")) == nil {
		t.Error("messages before the cut were removed")
	}

	if tr.TruncateBefore("missing") != nil {
		t.Error("TruncateBefore(missing) != nil")
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	tr := buildTranscript("a")
	tr.FindByID("a").Metadata = map[string]string{"k": "v"}

	snap := tr.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot length = %d, want 2", len(snap))
	}

	// Mutating the snapshot must not reach the working copy.
	snap[0].Content = "mutated"
	snap[0].Metadata["k"] = "mutated"

	if tr.FindByID("a").Content != "prompt a" {
		t.Error("snapshot mutation leaked into transcript content")
	}
	if tr.FindByID("a").Metadata["k"] != "v" {
		t.Error("snapshot mutation leaked into transcript metadata")
	}
}

func TestMessagePreview(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		maxRunes int
		want     string
	}{
		{"short content unchanged", "hello", 10, "hello"},
		{"newlines flattened", "line one\nline two", 40, "line one line two"},
		{"long content ellipsized", "abcdefghij", 8, "abcde..."},
		{"tiny budget truncates hard", "abcdefghij", 2, "ab"},
		{"exact fit keeps everything", "abcde", 5, "abcde"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Message{Content: tt.content}
			if got := m.Preview(tt.maxRunes); got != tt.want {
				t.Errorf("Preview(%d) = %q, want %q", tt.maxRunes, got, tt.want)
			}
		})
	}
}

func TestReplyIDRoundTrip(t *testing.T) {
	if got := ReplyID("m1"); got != "m1.reply" {
		t.Errorf("ReplyID(m1) = %q", got)
	}
	if !IsReply("m1.reply") {
		t.Error("IsReply(m1.reply) = false")
	}
	if IsReply("m1") {
		t.Error("IsReply(m1) = true")
	}
}
