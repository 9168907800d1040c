// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kagi implements the protocol client for the Kagi Assistant
// service.
package kagi

// =============================================================================
// RECORD HEADERS
// =============================================================================

// Recognized record headers on the streaming wire. Records with any other
// header are ignored, never treated as errors.
const (
	RecThread     = "thread.json"
	RecMessages   = "messages.json"
	RecLocation   = "location.json"
	RecNewMessage = "new_message.json"
	RecTokens     = "tokens.json"
	RecThreadList = "thread_list.html"
	RecProfiles   = "profiles.json"
)

// =============================================================================
// DOMAIN TYPES
// =============================================================================

// Thread identifies one server-side conversation.
type Thread struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Saved    bool   `json:"saved"`
	Pinned   bool   `json:"pinned"`
	Shared   bool   `json:"shared"`
	BranchID string `json:"branch_id"`
}

// ThreadEntry is one row of the thread list, scraped from the
// thread_list.html fragment.
type ThreadEntry struct {
	ID      string
	Title   string
	Excerpt string
}

// ThreadGroup is a display category of thread entries, in server order.
type ThreadGroup struct {
	Label   string
	Threads []ThreadEntry
}

// Profile is a selectable backend model configuration.
type Profile struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Model             string `json:"model"`
	ModelName         string `json:"model_name"`
	ModelProvider     string `json:"model_provider"`
	ModelProviderName string `json:"model_provider_name"`
	ModelInputLimit   int    `json:"model_input_limit"`
	InternetAccess    bool   `json:"internet_access"`
	Personalizations  bool   `json:"personalizations"`
}

// Companion is one selectable assistant persona, scraped from the
// companions page. Icon carries the card's inline SVG markup verbatim.
type Companion struct {
	ID   string
	Name string
	Icon string
}

// Citation is one (absolute URL, link text) pair extracted from a
// message's citations fragment.
type Citation struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Document is an attachment reference carried on a message DTO.
type Document struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// MessageDTO is one exchange delivered by a messages.json record when a
// thread is opened: the user prompt and the assistant reply that answers
// it, sharing the exchange id.
type MessageDTO struct {
	ID        string     `json:"id"`
	Prompt    string     `json:"prompt"`
	Reply     string     `json:"reply"`
	ReplyMD   string     `json:"reply_md"`
	Citations string     `json:"citations"` // HTML fragment
	Metadata  string     `json:"md"`        // HTML fragment
	Branches  []string   `json:"branches"`
	Documents []Document `json:"documents"`
}

// NewMessage is the decoded new_message.json record: the server-confirmed
// id for an in-flight submission plus the first content snapshot.
type NewMessage struct {
	ID        string              // server-confirmed id, replaces the placeholder
	Reply     string              // first content snapshot
	ReplyMD   string              // rendered-markdown variant, may be empty
	Citations []Citation          // decoded from the embedded fragment
	Metadata  map[string]string   // decoded from the embedded fragment
	Documents []Document
}

// =============================================================================
// REQUEST SCHEMA
// =============================================================================

// PromptRequest is the JSON body of every mutating/streaming endpoint.
type PromptRequest struct {
	Focus   Focus          `json:"focus"`
	Profile ProfileRequest `json:"profile"`
	Threads []ThreadScope  `json:"threads,omitempty"`
}

// Focus names the submission target: which thread, which message (for
// regeneration), the prompt text, and the branch to extend.
type Focus struct {
	ThreadID  string `json:"thread_id"`
	MessageID string `json:"message_id"`
	Prompt    string `json:"prompt"`
	BranchID  string `json:"branch_id"`
}

// ProfileRequest selects the model configuration for a submission.
type ProfileRequest struct {
	ID               string `json:"id"`
	InternetAccess   bool   `json:"internet_access"`
	LensID           string `json:"lens_id"`
	Model            string `json:"model"`
	Personalizations bool   `json:"personalizations"`
}

// ThreadScope frames a new thread on first submission.
type ThreadScope struct {
	TagIDs []string `json:"tag_ids"`
	Saved  bool     `json:"saved"`
	Shared bool     `json:"shared"`
}
