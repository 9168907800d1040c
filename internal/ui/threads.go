// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui implements the terminal interface.
package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/kagi-tui/internal/convo"
	"github.com/jeranaias/kagi-tui/internal/kagi"
	"github.com/jeranaias/kagi-tui/internal/settings"
	"github.com/jeranaias/kagi-tui/internal/util"
)

// =============================================================================
// MESSAGES
// =============================================================================

// threadsLoadedMsg delivers the scraped thread list or the fetch error.
type threadsLoadedMsg struct {
	groups []kagi.ThreadGroup
	err    error
}

// threadDeletedMsg reports the outcome of a thread deletion.
type threadDeletedMsg struct {
	id  string
	err error
}

// =============================================================================
// THREADS SCREEN
// =============================================================================

// threadRow is one selectable entry, flattened from its group for cursor
// navigation.
type threadRow struct {
	group string
	entry kagi.ThreadEntry
}

// threadsScreen lists past conversations grouped by recency.
type threadsScreen struct {
	deps Deps

	state  convo.CallState
	spin   spinner.Model
	groups []kagi.ThreadGroup
	rows   []threadRow
	cursor int
	errmsg string
	status string
}

func newThreadsScreen(deps Deps) Screen {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	return &threadsScreen{deps: deps, spin: spin, state: convo.CallFetching}
}

func (t *threadsScreen) fetch() tea.Cmd {
	client := t.deps.Client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		groups, err := client.ListThreads(ctx)
		return threadsLoadedMsg{groups: groups, err: err}
	}
}

func (t *threadsScreen) Init() tea.Cmd {
	return tea.Batch(t.spin.Tick, t.fetch())
}

func (t *threadsScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case threadsLoadedMsg:
		if msg.err != nil {
			t.state = convo.CallErrored
			t.errmsg = msg.err.Error()
			return t, nil
		}
		t.state = convo.CallOK
		t.setGroups(msg.groups)
		return t, nil

	case threadDeletedMsg:
		if msg.err != nil {
			t.status = t.deps.Styles.Error.Render("delete failed: " + msg.err.Error())
			return t, nil
		}
		t.status = "thread deleted"
		if t.deps.Store.GetString(settings.KeyLastThread) == msg.id {
			t.deps.Store.SetString(settings.KeyLastThread, "")
		}
		t.state = convo.CallFetching
		return t, t.fetch()

	case threadOpenedMsg:
		if msg.err != nil {
			t.status = t.deps.Styles.Error.Render("open failed: " + msg.err.Error())
			return t, nil
		}
		return t, switchScreen(ScreenChat)

	case spinner.TickMsg:
		var cmd tea.Cmd
		t.spin, cmd = t.spin.Update(msg)
		return t, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "q":
			return t, switchScreen(ScreenChat)
		case "up", "k":
			if t.cursor > 0 {
				t.cursor--
			}
		case "down", "j":
			if t.cursor < len(t.rows)-1 {
				t.cursor++
			}
		case "r":
			t.state = convo.CallFetching
			return t, t.fetch()
		case "d":
			return t, t.deleteSelected()
		case "enter":
			return t, t.openSelected()
		}
	}
	return t, nil
}

// setGroups flattens the grouped entries into cursor rows.
func (t *threadsScreen) setGroups(groups []kagi.ThreadGroup) {
	t.groups = groups
	t.rows = t.rows[:0]
	for _, g := range groups {
		for _, entry := range g.Threads {
			t.rows = append(t.rows, threadRow{group: g.Label, entry: entry})
		}
	}
	if t.cursor >= len(t.rows) {
		t.cursor = 0
	}
}

func (t *threadsScreen) openSelected() tea.Cmd {
	if t.cursor >= len(t.rows) {
		return nil
	}
	threadID := t.rows[t.cursor].entry.ID
	engine := t.deps.Engine
	store := t.deps.Store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		err := engine.OpenThread(ctx, threadID)
		if err == nil {
			store.SetString(settings.KeyLastThread, threadID)
		}
		return threadOpenedMsg{err: err}
	}
}

func (t *threadsScreen) deleteSelected() tea.Cmd {
	if t.cursor >= len(t.rows) {
		return nil
	}
	threadID := t.rows[t.cursor].entry.ID
	engine := t.deps.Engine
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return threadDeletedMsg{id: threadID, err: engine.DeleteThread(ctx, threadID)}
	}
}

func (t *threadsScreen) View() string {
	var b strings.Builder
	b.WriteString(t.deps.Styles.Title.Render("Threads"))
	b.WriteString("\n\n")

	switch t.state {
	case convo.CallFetching:
		b.WriteString(t.spin.View())
		b.WriteString(t.deps.Styles.Dim.Render(" loading threads..."))
		b.WriteString("\n")

	case convo.CallErrored:
		b.WriteString(t.deps.Styles.Error.Render(t.errmsg))
		b.WriteString("\n")
		b.WriteString(t.deps.Styles.Dim.Render("r to retry, esc to go back"))
		b.WriteString("\n")

	case convo.CallOK:
		if len(t.rows) == 0 {
			b.WriteString(t.deps.Styles.Dim.Render("no threads yet"))
			b.WriteString("\n")
			break
		}
		width := t.deps.Width
		if width <= 0 {
			width = 80
		}
		lastGroup := ""
		for i, row := range t.rows {
			if row.group != lastGroup {
				b.WriteString(t.deps.Styles.Group.Render(row.group))
				b.WriteString("\n")
				lastGroup = row.group
			}
			line := util.TruncateWidth(row.entry.Title, width-4)
			if row.entry.Excerpt != "" {
				line += t.deps.Styles.Dim.Render("  " + util.TruncateWidth(row.entry.Excerpt, width/2))
			}
			if i == t.cursor {
				b.WriteString(t.deps.Styles.Selected.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
	}

	if t.status != "" {
		b.WriteString("\n")
		b.WriteString(t.deps.Styles.Dim.Render(t.status))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(t.deps.Styles.StatusBar.Render(" enter open · d delete · r refresh · esc back "))
	return b.String()
}
