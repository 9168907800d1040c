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

// companionsLoadedMsg delivers the companion list or the fetch error.
type companionsLoadedMsg struct {
	companions []kagi.Companion
	err        error
}

// =============================================================================
// COMPANIONS SCREEN
// =============================================================================

// companionsScreen picks the assistant persona (lens) for submissions.
// The first row is always the no-companion default.
type companionsScreen struct {
	deps Deps

	state      convo.CallState
	spin       spinner.Model
	companions []kagi.Companion
	cursor     int
	errmsg     string
}

func newCompanionsScreen(deps Deps) Screen {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	return &companionsScreen{deps: deps, spin: spin, state: convo.CallFetching}
}

func (c *companionsScreen) fetch() tea.Cmd {
	client := c.deps.Client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		companions, err := client.ListCompanions(ctx)
		return companionsLoadedMsg{companions: companions, err: err}
	}
}

func (c *companionsScreen) Init() tea.Cmd {
	return tea.Batch(c.spin.Tick, c.fetch())
}

func (c *companionsScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case companionsLoadedMsg:
		if msg.err != nil {
			c.state = convo.CallErrored
			c.errmsg = msg.err.Error()
			return c, nil
		}
		c.state = convo.CallOK
		c.companions = msg.companions
		current := c.deps.Store.GetString(settings.KeyCompanion)
		for i, companion := range c.companions {
			if companion.ID == current {
				c.cursor = i + 1
				break
			}
		}
		return c, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		c.spin, cmd = c.spin.Update(msg)
		return c, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "q":
			return c, switchScreen(ScreenChat)
		case "up", "k":
			if c.cursor > 0 {
				c.cursor--
			}
		case "down", "j":
			if c.cursor < len(c.companions) {
				c.cursor++
			}
		case "r":
			c.state = convo.CallFetching
			return c, c.fetch()
		case "enter":
			c.selectCursor()
			return c, switchScreen(ScreenChat)
		}
	}
	return c, nil
}

// selectCursor persists the chosen companion id. Row zero clears it.
func (c *companionsScreen) selectCursor() {
	id := ""
	if c.cursor > 0 && c.cursor <= len(c.companions) {
		id = c.companions[c.cursor-1].ID
	}
	c.deps.Store.SetString(settings.KeyCompanion, id)
	c.deps.Engine.SetLens(id)
}

func (c *companionsScreen) View() string {
	var b strings.Builder
	b.WriteString(c.deps.Styles.Title.Render("Companions"))
	b.WriteString("\n\n")

	switch c.state {
	case convo.CallFetching:
		b.WriteString(c.spin.View())
		b.WriteString(c.deps.Styles.Dim.Render(" loading companions..."))
		b.WriteString("\n")

	case convo.CallErrored:
		b.WriteString(c.deps.Styles.Error.Render(c.errmsg))
		b.WriteString("\n")
		b.WriteString(c.deps.Styles.Dim.Render("r to retry, esc to go back"))
		b.WriteString("\n")

	case convo.CallOK:
		current := c.deps.Store.GetString(settings.KeyCompanion)
		width := c.deps.Width
		if width <= 0 {
			width = 80
		}

		none := "None"
		if current == "" {
			none += " *"
		}
		if c.cursor == 0 {
			b.WriteString(c.deps.Styles.Selected.Render("> " + none))
		} else {
			b.WriteString("  " + none)
		}
		b.WriteString("\n")

		for i, companion := range c.companions {
			line := util.TruncateWidth(companion.Name, width-6)
			if companion.ID == current {
				line += " *"
			}
			if i+1 == c.cursor {
				b.WriteString(c.deps.Styles.Selected.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(c.deps.Styles.StatusBar.Render(" enter select · r refresh · esc back "))
	return b.String()
}
