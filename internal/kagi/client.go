// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kagi implements the protocol client for the Kagi Assistant
// service.
package kagi

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/jeranaias/kagi-tui/internal/stream"
	"github.com/jeranaias/kagi-tui/internal/transport"
)

// Service endpoints.
const (
	pathSignin      = "/signin"
	pathSigninCheck = "/signin/check"
	pathAccount     = "/settings/account"
	pathThreadList  = "/assistant/threads"
	pathThread      = "/assistant/thread"
	pathPrompt      = "/assistant/prompt"
	pathRegenerate  = "/assistant/regenerate"
	pathDelete      = "/assistant/delete_thread"
	pathProfiles    = "/assistant/profiles"
	pathCompanions  = "/assistant/companions"
)

// privilegedProvider is the provider family ordered first in profile
// listings, compared case-insensitively.
const privilegedProvider = "kagi"

// DefaultBranchID extends the trunk of a thread when the server has not
// assigned a branch yet.
const DefaultBranchID = "00000000-0000-0000-0000-000000000000"

// =============================================================================
// CLIENT
// =============================================================================

// Client encapsulates every request shape the service accepts.
//
// The Client is safe for concurrent use. Two independent streams have no
// ordering guarantee relative to each other; records within one stream are
// delivered strictly in arrival order.
type Client struct {
	tr *transport.Client

	// In-memory profile cache, filled on first fetch.
	profileMu sync.Mutex
	profiles  []Profile
}

// NewClient creates a protocol client over the given transport.
func NewClient(tr *transport.Client) *Client {
	return &Client{tr: tr}
}

// Transport exposes the underlying transport (QR auth needs its jar).
func (c *Client) Transport() *transport.Client {
	return c.tr
}

// =============================================================================
// STREAMED OPERATIONS
// =============================================================================

// jsonHeader is the header set for JSON-bodied streaming requests.
func jsonHeader() http.Header {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	return h
}

// runStream opens a streaming request and feeds every decoded record to
// handle, in arrival order, on the calling goroutine. The body is closed
// on every exit path.
func (c *Client) runStream(ctx context.Context, method, path string, body io.Reader, extra http.Header, handle stream.RecordCallback) error {
	rc, err := c.tr.Stream(ctx, method, path, body, extra)
	if err != nil {
		return err
	}
	defer rc.Close()

	return stream.NewReader(rc).Process(ctx, handle)
}

// ListThreads fetches the thread list and scrapes its display groups.
func (c *Client) ListThreads(ctx context.Context) ([]ThreadGroup, error) {
	var groups []ThreadGroup
	var scrapeErr error

	err := c.runStream(ctx, http.MethodPost, pathThreadList, strings.NewReader("{}"), jsonHeader(), func(rec stream.Record) {
		if rec.Header != RecThreadList {
			return
		}
		parsed, err := parseThreadList(rec.Payload)
		if err != nil {
			scrapeErr = err
			return
		}
		groups = append(groups, parsed...)
	})
	if err != nil {
		return nil, err
	}
	if scrapeErr != nil {
		return nil, &Error{Type: ErrTypeScrape, Message: "failed to parse thread list", Cause: scrapeErr}
	}
	return groups, nil
}

// OpenThread fetches a thread's metadata and message history. The
// thread.json and messages.json records may arrive in either order; both
// are handled independently.
func (c *Client) OpenThread(ctx context.Context, threadID string) (Thread, []MessageDTO, error) {
	body, err := json.Marshal(PromptRequest{Focus: Focus{ThreadID: threadID, BranchID: DefaultBranchID}})
	if err != nil {
		return Thread{}, nil, err
	}

	var thread Thread
	var messages []MessageDTO

	err = c.runStream(ctx, http.MethodPost, pathThread, strings.NewReader(string(body)), jsonHeader(), func(rec stream.Record) {
		switch rec.Header {
		case RecThread:
			var t Thread
			if err := json.Unmarshal([]byte(rec.Payload), &t); err != nil {
				log.Printf("kagi: skipping malformed thread.json record: %v", err)
				return
			}
			thread = t
		case RecMessages:
			var dtos []MessageDTO
			if err := json.Unmarshal([]byte(rec.Payload), &dtos); err != nil {
				log.Printf("kagi: skipping malformed messages.json record: %v", err)
				return
			}
			messages = dtos
		}
	})
	if err != nil {
		return Thread{}, nil, err
	}
	return thread, messages, nil
}

// DeleteThread removes a thread server-side. The response stream is
// consumed and discarded; success is the absence of an error.
func (c *Client) DeleteThread(ctx context.Context, threadID string) error {
	body, err := json.Marshal(PromptRequest{Focus: Focus{ThreadID: threadID}})
	if err != nil {
		return err
	}
	return c.runStream(ctx, http.MethodPost, pathDelete, strings.NewReader(string(body)), jsonHeader(), func(stream.Record) {})
}

// =============================================================================
// SUBMISSION
// =============================================================================

// SubmitEvents receives the domain events decoded from a submission
// stream. Unset callbacks are simply not invoked. Callbacks run on the
// submitting goroutine, strictly in record arrival order.
type SubmitEvents struct {
	OnThread     func(Thread)
	OnLocation   func(branchID string)
	OnNewMessage func(NewMessage)
	OnTokens     func(id, text string)
	OnDone       func()
}

// Submit sends a prompt (or, when regenerate is set, regenerates the
// focused message) and streams the resulting events. With attachments the
// request is multipart; otherwise it is plain JSON.
func (c *Client) Submit(ctx context.Context, req PromptRequest, files []transport.FilePart, regenerate bool, events SubmitEvents) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}

	path := pathPrompt
	if regenerate {
		path = pathRegenerate
	}

	var body io.Reader
	extra := jsonHeader()
	if len(files) > 0 {
		mp, contentType, err := transport.EncodeMultipart(string(payload), files)
		if err != nil {
			return err
		}
		body = mp
		extra.Set("Content-Type", contentType)
	} else {
		body = strings.NewReader(string(payload))
	}

	return c.runStream(ctx, http.MethodPost, path, body, extra, func(rec stream.Record) {
		c.dispatchSubmitRecord(rec, events)
	})
}

// dispatchSubmitRecord translates one wire record into a domain event.
// Malformed records are logged and skipped; they never abort the stream.
func (c *Client) dispatchSubmitRecord(rec stream.Record, events SubmitEvents) {
	if rec.Terminal {
		if events.OnDone != nil {
			events.OnDone()
		}
		return
	}

	switch rec.Header {
	case RecThread:
		var t Thread
		if err := json.Unmarshal([]byte(rec.Payload), &t); err != nil {
			log.Printf("kagi: skipping malformed thread.json record: %v", err)
			return
		}
		if events.OnThread != nil {
			events.OnThread(t)
		}

	case RecLocation:
		var loc struct {
			BranchID string `json:"branch_id"`
		}
		if err := json.Unmarshal([]byte(rec.Payload), &loc); err != nil {
			log.Printf("kagi: skipping malformed location.json record: %v", err)
			return
		}
		if events.OnLocation != nil {
			events.OnLocation(loc.BranchID)
		}

	case RecNewMessage:
		msg, err := c.decodeNewMessage(rec.Payload)
		if err != nil {
			log.Printf("kagi: skipping malformed new_message.json record: %v", err)
			return
		}
		if events.OnNewMessage != nil {
			events.OnNewMessage(msg)
		}

	case RecTokens:
		var tok struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		}
		if err := json.Unmarshal([]byte(rec.Payload), &tok); err != nil {
			log.Printf("kagi: skipping malformed tokens.json record: %v", err)
			return
		}
		if events.OnTokens != nil {
			events.OnTokens(tok.ID, tok.Text)
		}

	default:
		// Unrecognized headers are ignored, not treated as errors.
	}
}

// decodeNewMessage unmarshals a new_message.json payload and decodes its
// embedded HTML fragments. Fragment decode failures are localized: the
// message survives with that one field empty.
func (c *Client) decodeNewMessage(payload string) (NewMessage, error) {
	var dto struct {
		ID        string     `json:"id"`
		Reply     string     `json:"reply"`
		ReplyMD   string     `json:"reply_md"`
		Citations string     `json:"citations"`
		Metadata  string     `json:"md"`
		Documents []Document `json:"documents"`
	}
	if err := json.Unmarshal([]byte(payload), &dto); err != nil {
		return NewMessage{}, err
	}

	msg := NewMessage{
		ID:        dto.ID,
		Reply:     dto.Reply,
		ReplyMD:   dto.ReplyMD,
		Documents: dto.Documents,
	}

	if dto.Citations != "" {
		citations, err := ParseCitations(dto.Citations, c.tr.BaseURL())
		if err != nil {
			log.Printf("kagi: dropping unparseable citations fragment: %v", err)
		} else {
			msg.Citations = citations
		}
	}

	if dto.Metadata != "" {
		meta, err := ParseMetadata(dto.Metadata)
		if err != nil {
			log.Printf("kagi: dropping unparseable metadata fragment: %v", err)
		} else {
			msg.Metadata = meta
		}
	}

	return msg, nil
}

// =============================================================================
// PROFILES
// =============================================================================

// ListProfiles fetches the selectable model profiles, cached in memory per
// client instance. Profiles from the privileged provider family are
// ordered first; all other entries preserve server order.
func (c *Client) ListProfiles(ctx context.Context) ([]Profile, error) {
	c.profileMu.Lock()
	if c.profiles != nil {
		cached := c.profiles
		c.profileMu.Unlock()
		return cached, nil
	}
	c.profileMu.Unlock()

	var profiles []Profile
	err := c.runStream(ctx, http.MethodPost, pathProfiles, strings.NewReader("{}"), jsonHeader(), func(rec stream.Record) {
		if rec.Header != RecProfiles {
			return
		}
		var parsed []Profile
		if err := json.Unmarshal([]byte(rec.Payload), &parsed); err != nil {
			log.Printf("kagi: skipping malformed profiles.json record: %v", err)
			return
		}
		profiles = parsed
	})
	if err != nil {
		return nil, err
	}

	profiles = orderProfiles(profiles)

	c.profileMu.Lock()
	c.profiles = profiles
	c.profileMu.Unlock()
	return profiles, nil
}

// orderProfiles partitions the privileged provider family first while
// preserving original order within both halves.
func orderProfiles(profiles []Profile) []Profile {
	ordered := make([]Profile, len(profiles))
	copy(ordered, profiles)
	sort.SliceStable(ordered, func(i, j int) bool {
		pi := strings.EqualFold(ordered[i].ModelProvider, privilegedProvider)
		pj := strings.EqualFold(ordered[j].ModelProvider, privilegedProvider)
		return pi && !pj
	})
	return ordered
}

// =============================================================================
// COMPANIONS & ACCOUNT
// =============================================================================

// ListCompanions fetches and scrapes the companion cards.
func (c *Client) ListCompanions(ctx context.Context) ([]Companion, error) {
	rc, err := c.tr.Do(ctx, http.MethodGet, pathCompanions, nil, nil)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	page, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return parseCompanions(string(page))
}

// CheckAuth probes the account page. It reports whether the session is
// authenticated and, if so, the account email. A session the server
// rejects outright yields ErrNotAuthenticated.
func (c *Client) CheckAuth(ctx context.Context) (bool, string, error) {
	rc, err := c.tr.Do(ctx, http.MethodGet, pathAccount, nil, nil)
	if err != nil {
		if transport.IsStatus(err, http.StatusUnauthorized) || transport.IsStatus(err, http.StatusForbidden) {
			return false, "", ErrNotAuthenticated
		}
		return false, "", err
	}
	defer rc.Close()

	page, err := io.ReadAll(rc)
	if err != nil {
		return false, "", err
	}
	return parseAccountPage(string(page))
}
