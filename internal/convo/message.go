// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package convo holds the conversation transcript and the reconciliation
// engine that folds streamed protocol events into it.
package convo

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/kagi-tui/internal/kagi"
)

// ReplySuffix marks the assistant half of an exchange: the in-progress
// reply's id is always the user message's id plus this suffix.
const ReplySuffix = ".reply"

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single turn in a conversation. ID is mutable: it is
// reassigned exactly once during send, from the client placeholder to the
// server-confirmed id. Role is fixed at creation. Content mutates while
// the reply streams.
type Message struct {
	ID          string
	Role        Role
	Content     string
	Markdown    string // rendered-markdown variant, may be empty
	Citations   []kagi.Citation
	Documents   []kagi.Document
	Branches    []string
	Completed   bool
	Metadata    map[string]string
	Provisional bool // true until the server confirms the identity
	Timestamp   time.Time
}

// NewUserMessage creates a user message under a generated placeholder id.
func NewUserMessage(content string) *Message {
	return &Message{
		ID:          uuid.NewString(),
		Role:        RoleUser,
		Content:     content,
		Completed:   true,
		Provisional: true,
		Timestamp:   time.Now(),
	}
}

// NewReplyPlaceholder creates the empty assistant message paired with the
// given user message. Its id is derived, never independent.
func NewReplyPlaceholder(userID string) *Message {
	return &Message{
		ID:          ReplyID(userID),
		Role:        RoleAssistant,
		Provisional: true,
		Timestamp:   time.Now(),
	}
}

// ReplyID derives the assistant-half id for a user message id.
func ReplyID(userID string) string {
	return userID + ReplySuffix
}

// IsReply reports whether id names the assistant half of an exchange.
func IsReply(id string) bool {
	return strings.HasSuffix(id, ReplySuffix)
}

// MergeBranch records a branch id on the message if not already present.
func (m *Message) MergeBranch(branchID string) {
	if branchID == "" {
		return
	}
	for _, b := range m.Branches {
		if b == branchID {
			return
		}
	}
	m.Branches = append(m.Branches, branchID)
}

// Preview returns a truncated single-line preview of the content.
func (m *Message) Preview(maxRunes int) string {
	content := strings.ReplaceAll(m.Content, "\n", " ")
	runes := []rune(content)
	if len(runes) <= maxRunes {
		return content
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// clone returns a deep copy of the message for snapshot publication.
func (m *Message) clone() Message {
	out := *m
	if m.Citations != nil {
		out.Citations = append([]kagi.Citation(nil), m.Citations...)
	}
	if m.Documents != nil {
		out.Documents = append([]kagi.Document(nil), m.Documents...)
	}
	if m.Branches != nil {
		out.Branches = append([]string(nil), m.Branches...)
	}
	if m.Metadata != nil {
		out.Metadata = make(map[string]string, len(m.Metadata))
		for k, v := range m.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
