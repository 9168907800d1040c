// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui implements the terminal interface.
package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/kagi-tui/internal/convo"
	"github.com/jeranaias/kagi-tui/internal/kagi"
	"github.com/jeranaias/kagi-tui/internal/settings"
)

// =============================================================================
// MESSAGES
// =============================================================================

// snapshotMsg delivers one engine snapshot to the chat screen.
type snapshotMsg struct {
	snap convo.Snapshot
}

// sendDoneMsg reports the outcome of a completed submission task.
type sendDoneMsg struct {
	err error
}

// threadOpenedMsg reports the outcome of opening a thread.
type threadOpenedMsg struct {
	err error
}

// =============================================================================
// CHAT SCREEN
// =============================================================================

// chatScreen renders the transcript and owns the composer.
type chatScreen struct {
	deps Deps

	input    textarea.Model
	view     viewport.Model
	spin     spinner.Model
	renderer *glamour.TermRenderer

	snap    convo.Snapshot
	status  string
	warning string
}

func newChatScreen(deps Deps) Screen {
	input := textarea.New()
	input.Placeholder = "Ask anything... (/help for commands)"
	input.SetHeight(3)
	input.Focus()
	input.SetValue(deps.Store.GetString(settings.KeyDraft))

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	width := deps.Width
	if width <= 0 {
		width = 80
	}
	height := deps.Height
	if height <= 0 {
		height = 24
	}

	renderer, _ := NewMarkdownRenderer(width - 4)

	vp := viewport.New(width, height-6)

	return &chatScreen{
		deps:     deps,
		input:    input,
		view:     vp,
		spin:     spin,
		renderer: renderer,
	}
}

// waitForSnapshot blocks on the engine's update channel.
func (c *chatScreen) waitForSnapshot() tea.Cmd {
	updates := c.deps.Engine.Updates()
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return nil
		}
		return snapshotMsg{snap: snap}
	}
}

func (c *chatScreen) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink, c.spin.Tick, c.waitForSnapshot()}

	// Restore the last-open thread once per startup.
	if threadID := c.deps.Store.GetString(settings.KeyLastThread); threadID != "" && c.deps.Engine.ThreadID() == "" {
		engine := c.deps.Engine
		cmds = append(cmds, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return threadOpenedMsg{err: engine.OpenThread(ctx, threadID)}
		})
	}
	return tea.Batch(cmds...)
}

func (c *chatScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		c.view.Width = msg.Width
		c.view.Height = msg.Height - 6
		c.input.SetWidth(msg.Width - 2)
		c.renderer, _ = NewMarkdownRenderer(msg.Width - 4)
		c.refreshView()

	case snapshotMsg:
		c.snap = msg.snap
		c.refreshView()
		cmds = append(cmds, c.waitForSnapshot())

	case sendDoneMsg:
		if msg.err != nil {
			c.status = c.deps.Styles.Error.Render("send failed: " + msg.err.Error())
		} else {
			c.status = ""
		}

	case threadOpenedMsg:
		if msg.err != nil {
			c.status = c.deps.Styles.Error.Render("could not reopen last thread")
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		c.spin, cmd = c.spin.Update(msg)
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			return c, c.submit()
		case "ctrl+t":
			c.saveDraft()
			return c, switchScreen(ScreenThreads)
		case "ctrl+p":
			c.saveDraft()
			return c, switchScreen(ScreenProfiles)
		case "ctrl+g":
			c.saveDraft()
			return c, switchScreen(ScreenCompanions)
		case "ctrl+n":
			c.deps.Engine.NewChat()
			c.deps.Store.SetString(settings.KeyLastThread, "")
			return c, nil
		case "pgup", "pgdown":
			var cmd tea.Cmd
			c.view, cmd = c.view.Update(msg)
			return c, cmd
		}
	}

	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	cmds = append(cmds, cmd)
	return c, tea.Batch(cmds...)
}

// submit handles the composer content: a slash command or a prompt.
func (c *chatScreen) submit() tea.Cmd {
	text := strings.TrimSpace(c.input.Value())
	if text == "" {
		return nil
	}

	if strings.HasPrefix(text, "/") {
		c.input.Reset()
		return c.runCommand(text)
	}

	c.input.Reset()
	c.warning = ""
	c.deps.Store.SetString(settings.KeyDraft, "")

	engine := c.deps.Engine
	store := c.deps.Store
	return func() tea.Msg {
		err := engine.Send(context.Background(), text)
		if err == nil {
			store.SetString(settings.KeyLastThread, engine.ThreadID())
		}
		return sendDoneMsg{err: err}
	}
}

// runCommand executes one slash command.
func (c *chatScreen) runCommand(text string) tea.Cmd {
	parts := strings.Fields(text)
	arg := ""
	if len(parts) > 1 {
		arg = strings.Join(parts[1:], " ")
	}

	switch parts[0] {
	case "/attach":
		c.attach(arg)
		return nil

	case "/edit":
		c.editMessage(arg)
		return nil

	case "/new":
		c.deps.Engine.NewChat()
		c.deps.Store.SetString(settings.KeyLastThread, "")
		return nil

	case "/temp":
		on := !c.deps.Store.GetBool(settings.KeyTemporaryChats)
		c.deps.Store.SetBool(settings.KeyTemporaryChats, on)
		c.deps.Engine.SetTemporary(on)
		if on {
			c.status = "temporary chat: on"
		} else {
			c.status = "temporary chat: off"
		}
		return nil

	case "/delete":
		threadID := c.deps.Engine.ThreadID()
		if threadID == "" {
			c.status = "no active thread"
			return nil
		}
		engine := c.deps.Engine
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return sendDoneMsg{err: engine.DeleteThread(ctx, threadID)}
		}

	case "/threads":
		return switchScreen(ScreenThreads)
	case "/profiles":
		return switchScreen(ScreenProfiles)
	case "/companions":
		return switchScreen(ScreenCompanions)

	case "/help":
		c.status = "/attach <path>  /edit [n]  /new  /temp  /delete  /threads  /profiles  /companions  /quit"
		return nil

	case "/quit":
		return tea.Quit

	default:
		c.status = "unknown command: " + parts[0]
		return nil
	}
}

// attach stages a local file for the next submission.
func (c *chatScreen) attach(path string) {
	if path == "" {
		c.status = "usage: /attach <path>"
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		c.status = c.deps.Styles.Error.Render("attach: " + err.Error())
		return
	}

	if !c.deps.Engine.AddAttachment(filepath.Base(path), data) {
		c.warning = c.deps.Styles.Warning.Render("attachment rejected: 16 MiB limit reached")
		c.deps.Engine.AttachmentWarning()
		return
	}
	c.status = filepath.Base(path) + " attached"
}

// editMessage selects a user message for editing and pre-fills the
// composer with its original content. With no argument it targets the
// most recent user message; a number counts user messages from the top
// of the thread.
func (c *chatScreen) editMessage(arg string) {
	target, ok := editTarget(c.snap.Messages, arg)
	if !ok {
		c.status = "usage: /edit [n] (no matching message)"
		return
	}
	if content, edited := c.deps.Engine.Edit(target.ID); edited {
		c.input.SetValue(content)
		c.status = "editing: " + target.Preview(48)
	}
}

// editTarget resolves which user message an edit command names: an empty
// argument selects the most recent, a positive n selects the nth user
// message counting from the start of the thread.
func editTarget(messages []convo.Message, arg string) (convo.Message, bool) {
	var users []convo.Message
	for _, m := range messages {
		if m.Role == convo.RoleUser {
			users = append(users, m)
		}
	}
	if len(users) == 0 {
		return convo.Message{}, false
	}
	if arg == "" {
		return users[len(users)-1], true
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(users) {
		return convo.Message{}, false
	}
	return users[n-1], true
}

// saveDraft persists the composer content before leaving the screen.
func (c *chatScreen) saveDraft() {
	c.deps.Store.SetString(settings.KeyDraft, c.input.Value())
}

// =============================================================================
// RENDERING
// =============================================================================

// refreshView re-renders the transcript into the viewport and follows the
// tail.
func (c *chatScreen) refreshView() {
	var b strings.Builder
	for i := range c.snap.Messages {
		msg := &c.snap.Messages[i]
		b.WriteString(c.renderMessage(msg))
		b.WriteString("\n")
	}
	c.view.SetContent(b.String())
	c.view.GotoBottom()
}

func (c *chatScreen) renderMessage(msg *convo.Message) string {
	var b strings.Builder

	switch msg.Role {
	case convo.RoleUser:
		b.WriteString(c.deps.Styles.UserLabel.Render(msg.Role.DisplayName()))
		b.WriteString("\n")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	case convo.RoleAssistant:
		b.WriteString(c.deps.Styles.BotLabel.Render(msg.Role.DisplayName()))
		b.WriteString("\n")
		b.WriteString(c.renderMarkdown(msg))
		for _, cite := range msg.Citations {
			b.WriteString(c.deps.Styles.Citation.Render("  › " + cite.Title + " — " + cite.URL))
			b.WriteString("\n")
		}
		for _, doc := range msg.Documents {
			b.WriteString(c.deps.Styles.Dim.Render("  ⎘ " + documentLabel(doc)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// documentLabel names an attached document. Inline data URIs are decoded
// to report their size; a corrupt one is flagged rather than hidden.
func documentLabel(doc kagi.Document) string {
	if !strings.HasPrefix(doc.URL, "data:") {
		return doc.Name
	}
	data, err := kagi.DecodeDataURI(doc.URL)
	if err != nil {
		if kagi.IsDecode(err) {
			return doc.Name + " (unreadable)"
		}
		return doc.Name
	}
	return fmt.Sprintf("%s (%d bytes)", doc.Name, len(data))
}

// renderMarkdown prefers the rendered-markdown variant, falling back to
// the raw content. Incomplete replies render raw to avoid glamour
// reflowing half-streamed text.
func (c *chatScreen) renderMarkdown(msg *convo.Message) string {
	source := msg.Content
	if msg.Markdown != "" {
		source = msg.Markdown
	}
	if !msg.Completed || c.renderer == nil {
		return source + "\n"
	}
	out, err := c.renderer.Render(source)
	if err != nil {
		return source + "\n"
	}
	return out
}

func (c *chatScreen) View() string {
	var b strings.Builder

	title := c.snap.ThreadTitle
	if title == "" {
		title = "New chat"
	}
	b.WriteString(c.deps.Styles.Title.Render(title))
	b.WriteString("\n")
	b.WriteString(c.view.View())
	b.WriteString("\n")

	if c.snap.SendState == convo.SendAwaitingConfirmation || c.snap.SendState == convo.SendConfirmed || c.snap.SendState == convo.SendStreaming {
		b.WriteString(c.spin.View())
		b.WriteString(c.deps.Styles.Dim.Render(" thinking..."))
		b.WriteString("\n")
	}
	if c.warning != "" {
		b.WriteString(c.warning)
		b.WriteString("\n")
	}
	if c.status != "" {
		b.WriteString(c.deps.Styles.Dim.Render(c.status))
		b.WriteString("\n")
	}
	if n := c.deps.Engine.PendingAttachments(); n > 0 {
		b.WriteString(c.deps.Styles.Dim.Render("attachments staged"))
		b.WriteString("\n")
	}

	b.WriteString(c.input.View())
	return b.String()
}
