// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package convo holds the conversation transcript and the reconciliation
// engine that folds streamed protocol events into it.
package convo

// =============================================================================
// TRANSCRIPT TYPE
// =============================================================================

// Transcript is the ordered message sequence for the active thread.
// Append-only except for edit truncation and in-place mutation of the
// trailing in-progress message. It is exclusively owned by the engine and
// replaced wholesale when switching threads; it is not safe for concurrent
// use on its own.
type Transcript struct {
	messages []*Message
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append adds a message to the end of the transcript.
func (t *Transcript) Append(msg *Message) {
	t.messages = append(t.messages, msg)
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// Last returns the most recent message, or nil if empty.
func (t *Transcript) Last() *Message {
	if len(t.messages) == 0 {
		return nil
	}
	return t.messages[len(t.messages)-1]
}

// FindByID returns the message with the given id, or nil.
//
// PERFORMANCE: the most common update target is the most recently
// appended message, so the last element is checked before the linear
// scan. Tail-first lookup is a preserved behavior of the update path; it
// never changes ordering semantics.
func (t *Transcript) FindByID(id string) *Message {
	if last := t.Last(); last != nil && last.ID == id {
		return last
	}
	for _, msg := range t.messages {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

// IndexOf returns the position of the message with the given id, or -1.
func (t *Transcript) IndexOf(id string) int {
	for i, msg := range t.messages {
		if msg.ID == id {
			return i
		}
	}
	return -1
}

// ReassignID rewrites every occurrence of the placeholder exchange id to
// the server-confirmed id: oldID becomes newID and the derived reply id
// moves with it. Both halves change together; no message retains the old
// identity afterwards.
func (t *Transcript) ReassignID(oldID, newID string) {
	oldReply := ReplyID(oldID)
	newReply := ReplyID(newID)
	for _, msg := range t.messages {
		switch msg.ID {
		case oldID:
			msg.ID = newID
			msg.Provisional = false
		case oldReply:
			msg.ID = newReply
			msg.Provisional = false
		}
	}
}

// TruncateBefore removes the message with the given id and everything
// after it, keeping only messages strictly before it. Returns the removed
// head message, or nil if the id is not present.
func (t *Transcript) TruncateBefore(id string) *Message {
	idx := t.IndexOf(id)
	if idx < 0 {
		return nil
	}
	removed := t.messages[idx]
	t.messages = t.messages[:idx]
	return removed
}

// Clear removes all messages.
func (t *Transcript) Clear() {
	t.messages = nil
}

// Snapshot returns deep copies of all messages in order, safe to hand to
// readers while the working copy keeps mutating.
func (t *Transcript) Snapshot() []Message {
	out := make([]Message, len(t.messages))
	for i, msg := range t.messages {
		out[i] = msg.clone()
	}
	return out
}
