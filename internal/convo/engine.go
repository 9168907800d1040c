// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package convo holds the conversation transcript and the reconciliation
// engine that folds streamed protocol events into it.
package convo

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/kagi-tui/internal/kagi"
	"github.com/jeranaias/kagi-tui/internal/tasks"
)

// DefaultPublishInterval is the minimum gap between throttled snapshot
// publications during token bursts. The first content snapshot and the
// terminal completion update bypass the throttle.
const DefaultPublishInterval = 32 * time.Millisecond

// TemporaryThreadTTL is the best-effort background deletion delay for
// temporary threads, independent of explicit deletion.
const TemporaryThreadTTL = 15 * time.Minute

// sendFailureFallback is shown in place of the assistant reply when a send
// fails mid-conversation. A failed send must not blank the transcript.
const sendFailureFallback = "Something went wrong while answering. Please try again."

// ErrSendInFlight is returned when a submission is attempted while another
// one is still streaming. At most one send is in flight per transcript.
var ErrSendInFlight = errors.New("a message is already being sent")

// =============================================================================
// SEND STATE
// =============================================================================

// SendState tracks the lifecycle of the in-flight submission.
type SendState int

const (
	SendIdle SendState = iota
	SendPlaceholderCreated
	SendAwaitingConfirmation
	SendConfirmed
	SendStreaming
	SendDone
	SendFailed
)

// active reports whether a submission currently owns the transcript tail.
func (s SendState) active() bool {
	switch s {
	case SendPlaceholderCreated, SendAwaitingConfirmation, SendConfirmed, SendStreaming:
		return true
	}
	return false
}

// CallState is the tri-state status of a fetch-type operation, rendered
// directly by the UI (spinner / content / error message).
type CallState int

const (
	CallIdle CallState = iota
	CallFetching
	CallOK
	CallErrored
)

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is an immutable view of the transcript published to observers.
type Snapshot struct {
	Messages    []Message
	ThreadID    string
	ThreadTitle string
	SendState   SendState
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine reconciles streamed protocol events into the transcript.
//
// All mutation happens through Engine methods; the private working copy is
// never exposed. Observers receive deep-copied snapshots on the Updates
// channel, conflated so a slow reader only ever lags to the latest state.
type Engine struct {
	client    *kagi.Client
	scheduler *tasks.Scheduler

	mu         sync.Mutex
	transcript *Transcript
	thread     kagi.Thread
	temporary  bool

	// editingID marks the message being edited, which switches the next
	// submission to the regenerate endpoint and omits new-thread framing.
	editingID string

	// inProgressID is the user-half id of the in-flight exchange. It is a
	// mutable pointer, not re-derived: both halves change together when
	// the server confirms the identity.
	inProgressID string

	branchID    string
	sendState   SendState
	attachments Attachments
	profile     kagi.ProfileRequest

	limiter *rate.Limiter
	updates chan Snapshot
}

// NewEngine creates an engine over the given protocol client. scheduler
// may be nil, in which case temporary threads are only deleted explicitly.
func NewEngine(client *kagi.Client, scheduler *tasks.Scheduler) *Engine {
	return &Engine{
		client:     client,
		scheduler:  scheduler,
		transcript: NewTranscript(),
		branchID:   kagi.DefaultBranchID,
		limiter:    rate.NewLimiter(rate.Every(DefaultPublishInterval), 1),
		updates:    make(chan Snapshot, 16),
	}
}

// Updates returns the snapshot channel. The engine is the only writer.
func (e *Engine) Updates() <-chan Snapshot {
	return e.updates
}

// SetProfile selects the model configuration for subsequent submissions.
func (e *Engine) SetProfile(p kagi.ProfileRequest) {
	e.mu.Lock()
	e.profile = p
	e.mu.Unlock()
}

// SetLens selects the companion lens without disturbing the rest of the
// profile block. Empty clears it.
func (e *Engine) SetLens(lensID string) {
	e.mu.Lock()
	e.profile.LensID = lensID
	e.mu.Unlock()
}

// SetTemporary marks the current thread as temporary. Temporary threads
// are deleted when a new chat starts and, as a safety net, by a delayed
// best-effort background task once the thread exists server-side.
func (e *Engine) SetTemporary(temporary bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.temporary = temporary
	if temporary && e.thread.ID != "" {
		e.scheduleCleanupLocked(e.thread.ID)
	}
}

// ThreadID returns the active thread id, empty before the first exchange.
func (e *Engine) ThreadID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.thread.ID
}

// CurrentSendState returns the in-flight submission state.
func (e *Engine) CurrentSendState() SendState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sendState
}

// =============================================================================
// ATTACHMENTS
// =============================================================================

// AddAttachment validates and stages an attachment for the next send.
// Rejections set the oversize warning instead of failing silently.
func (e *Engine) AddAttachment(filename string, data []byte) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attachments.Add(filename, data)
}

// AttachmentWarning reports and clears the oversize warning flag.
func (e *Engine) AttachmentWarning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	warned := e.attachments.OversizeWarning()
	e.attachments.ClearWarning()
	return warned
}

// PendingAttachments returns the count of staged attachments.
func (e *Engine) PendingAttachments() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attachments.Count()
}

// =============================================================================
// SUBMISSION
// =============================================================================

// Send submits a prompt and folds the resulting event stream into the
// transcript. It blocks until the stream completes; callers run it as an
// independent task. Errors are surfaced after the transcript is left in a
// safe failed state.
func (e *Engine) Send(ctx context.Context, prompt string) error {
	e.mu.Lock()
	if e.sendState.active() {
		e.mu.Unlock()
		return ErrSendInFlight
	}

	user := NewUserMessage(prompt)
	reply := NewReplyPlaceholder(user.ID)
	e.transcript.Append(user)
	e.transcript.Append(reply)
	e.inProgressID = user.ID
	e.sendState = SendPlaceholderCreated

	editing := e.editingID
	e.editingID = ""

	req := kagi.PromptRequest{
		Focus: kagi.Focus{
			ThreadID:  e.thread.ID,
			MessageID: editing,
			Prompt:    prompt,
			BranchID:  e.branchID,
		},
		Profile: e.profile,
	}
	if editing == "" && e.thread.ID == "" {
		// New-thread framing, omitted for regeneration.
		req.Threads = []kagi.ThreadScope{{TagIDs: []string{}, Saved: !e.temporary}}
	}

	files := e.attachments.Files()
	e.attachments.Reset()

	e.sendState = SendAwaitingConfirmation
	// The user's own message appears instantly, ahead of the throttle.
	e.publishLocked(true)
	e.mu.Unlock()

	err := e.client.Submit(ctx, req, files, editing != "", kagi.SubmitEvents{
		OnThread:     e.onThread,
		OnLocation:   e.onLocation,
		OnNewMessage: e.onNewMessage,
		OnTokens:     e.onTokens,
		OnDone:       e.onDone,
	})
	if err != nil {
		e.failSend(err)
		return err
	}
	return nil
}

// onThread assigns the thread identity delivered by the stream.
func (e *Engine) onThread(t kagi.Thread) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.thread = t
	if t.BranchID != "" {
		e.branchID = t.BranchID
	}
	if e.temporary && t.ID != "" {
		e.scheduleCleanupLocked(t.ID)
	}
}

// onLocation merges a branch id into the in-progress reply.
func (e *Engine) onLocation(branchID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if branchID != "" {
		e.branchID = branchID
	}
	if reply := e.transcript.FindByID(ReplyID(e.inProgressID)); reply != nil {
		reply.MergeBranch(branchID)
	}
}

// onNewMessage performs the one identity reassignment of the send: the
// placeholder id is rewritten to the server id everywhere it appears, the
// in-progress pointer moves with it, and the first content snapshot is
// published immediately.
func (e *Engine) onNewMessage(msg kagi.NewMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if msg.ID != "" && msg.ID != e.inProgressID {
		e.transcript.ReassignID(e.inProgressID, msg.ID)
		e.inProgressID = msg.ID
	}

	if reply := e.transcript.FindByID(ReplyID(e.inProgressID)); reply != nil {
		reply.Content = msg.Reply
		reply.Markdown = msg.ReplyMD
		reply.Citations = msg.Citations
		reply.Metadata = msg.Metadata
		reply.Documents = msg.Documents
	}

	e.sendState = SendConfirmed
	e.publishLocked(true)
}

// onTokens replaces (never appends) the reply content with the full
// current text carried by the record. Publication is throttled.
func (e *Engine) onTokens(id, text string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Tokens are matched against the confirmed id, not the placeholder.
	if reply := e.transcript.FindByID(ReplyID(id)); reply != nil {
		reply.Content = text
		e.sendState = SendStreaming
		e.publishLocked(false)
	}
}

// onDone marks the reply complete. The terminal update bypasses the
// throttle so completion is never visibly delayed.
func (e *Engine) onDone() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if reply := e.transcript.FindByID(ReplyID(e.inProgressID)); reply != nil {
		reply.Completed = true
	}
	e.sendState = SendDone
	e.inProgressID = ""
	e.publishLocked(true)
}

// failSend leaves whatever partial state exists, substitutes the fallback
// reply text, and publishes. A failed send never crashes the transcript.
func (e *Engine) failSend(cause error) {
	log.Printf("convo: send failed: %v", cause)

	e.mu.Lock()
	defer e.mu.Unlock()

	if reply := e.transcript.FindByID(ReplyID(e.inProgressID)); reply != nil {
		if reply.Content == "" {
			reply.Content = sendFailureFallback
		}
		reply.Completed = true
	}
	e.sendState = SendFailed
	e.inProgressID = ""
	e.publishLocked(true)
}

// =============================================================================
// THREAD LIFECYCLE
// =============================================================================

// OpenThread fetches a thread and replaces the transcript wholesale.
func (e *Engine) OpenThread(ctx context.Context, threadID string) error {
	thread, dtos, err := e.client.OpenThread(ctx, threadID)
	if err != nil {
		return err
	}

	base := e.client.Transport().BaseURL()
	transcript := NewTranscript()
	for _, dto := range dtos {
		transcript.Append(&Message{
			ID:        dto.ID,
			Role:      RoleUser,
			Content:   dto.Prompt,
			Completed: true,
			Timestamp: time.Now(),
		})

		reply := &Message{
			ID:        ReplyID(dto.ID),
			Role:      RoleAssistant,
			Content:   dto.Reply,
			Markdown:  dto.ReplyMD,
			Branches:  dto.Branches,
			Documents: dto.Documents,
			Completed: true,
			Timestamp: time.Now(),
		}
		// Fragment decode failures are localized to the one message.
		if dto.Citations != "" {
			if citations, err := kagi.ParseCitations(dto.Citations, base); err == nil {
				reply.Citations = citations
			} else {
				log.Printf("convo: dropping citations for %s: %v", dto.ID, err)
			}
		}
		if dto.Metadata != "" {
			if meta, err := kagi.ParseMetadata(dto.Metadata); err == nil {
				reply.Metadata = meta
			} else {
				log.Printf("convo: dropping metadata for %s: %v", dto.ID, err)
			}
		}
		transcript.Append(reply)
	}

	e.mu.Lock()
	e.transcript = transcript
	e.thread = thread
	if thread.BranchID != "" {
		e.branchID = thread.BranchID
	} else {
		e.branchID = kagi.DefaultBranchID
	}
	e.sendState = SendIdle
	e.editingID = ""
	e.inProgressID = ""
	e.publishLocked(true)
	e.mu.Unlock()
	return nil
}

// Edit selects an earlier message for editing: the transcript is truncated
// to everything strictly before it (cleared entirely when it is the first
// message, which then starts a new thread). Returns the edited message's
// original content for input pre-fill.
func (e *Engine) Edit(id string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.transcript.IndexOf(id)
	if idx < 0 {
		return "", false
	}

	removed := e.transcript.TruncateBefore(id)
	content := removed.Content

	if idx == 0 {
		// Editing the very first message starts the thread over.
		e.transcript.Clear()
		e.thread = kagi.Thread{}
		e.branchID = kagi.DefaultBranchID
		e.editingID = ""
	} else {
		e.editingID = id
	}
	e.sendState = SendIdle
	e.inProgressID = ""
	e.publishLocked(true)
	return content, true
}

// NewChat resets local state for a fresh thread. A temporary thread with
// messages is deleted asynchronously first; deletion failures are logged,
// never surfaced.
func (e *Engine) NewChat() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.temporary && e.thread.ID != "" && e.transcript.Len() > 0 {
		threadID := e.thread.ID
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := e.client.DeleteThread(ctx, threadID); err != nil {
				log.Printf("convo: temporary thread cleanup failed: %v", err)
			}
		}()
	}

	e.transcript = NewTranscript()
	e.thread = kagi.Thread{}
	e.branchID = kagi.DefaultBranchID
	e.sendState = SendIdle
	e.editingID = ""
	e.inProgressID = ""
	e.attachments.Reset()
	e.publishLocked(true)
}

// DeleteThread removes a thread server-side; when it is the active thread
// the transcript is reset as well.
func (e *Engine) DeleteThread(ctx context.Context, threadID string) error {
	if err := e.client.DeleteThread(ctx, threadID); err != nil {
		return err
	}

	e.mu.Lock()
	if e.thread.ID == threadID {
		e.transcript = NewTranscript()
		e.thread = kagi.Thread{}
		e.branchID = kagi.DefaultBranchID
		e.sendState = SendIdle
		e.editingID = ""
		e.inProgressID = ""
		e.publishLocked(true)
	}
	e.mu.Unlock()
	return nil
}

// scheduleCleanupLocked registers the best-effort delayed deletion of a
// temporary thread. Retries are the scheduler's policy, not ours.
func (e *Engine) scheduleCleanupLocked(threadID string) {
	if e.scheduler == nil {
		return
	}
	client := e.client
	e.scheduler.Schedule("delete temporary thread "+threadID, TemporaryThreadTTL, func(ctx context.Context) error {
		return client.DeleteThread(ctx, threadID)
	})
}

// =============================================================================
// PUBLICATION
// =============================================================================

// publishLocked emits a snapshot to observers. Throttled publications may
// be dropped inside the publish interval; forced ones (first snapshot,
// terminal update, structural changes) always go out. The channel send
// conflates: when the buffer is full the oldest snapshot is discarded.
func (e *Engine) publishLocked(force bool) {
	if !force && !e.limiter.Allow() {
		return
	}

	snap := Snapshot{
		Messages:    e.transcript.Snapshot(),
		ThreadID:    e.thread.ID,
		ThreadTitle: e.thread.Title,
		SendState:   e.sendState,
	}

	select {
	case e.updates <- snap:
	default:
		select {
		case <-e.updates:
		default:
		}
		select {
		case e.updates <- snap:
		default:
		}
	}
}
