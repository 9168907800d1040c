// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui implements the terminal interface.
package ui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/kagi-tui/internal/kagi"
)

// authCheckedMsg reports the startup probe of the stored session.
type authCheckedMsg struct {
	err error
}

// =============================================================================
// APP MODEL
// =============================================================================

// App is the root Bubble Tea model. It owns the active screen and routes
// every message to it; global keys are handled here.
type App struct {
	deps   Deps
	kind   ScreenKind
	screen Screen
}

// NewApp creates the root model. With no stored session the sign-in
// screen comes first; otherwise the chat screen.
func NewApp(deps Deps) *App {
	kind := ScreenChat
	if deps.Client.Transport().SessionToken() == "" {
		kind = ScreenSignin
	}
	return &App{
		deps:   deps,
		kind:   kind,
		screen: NewScreen(kind, deps),
	}
}

// Init implements tea.Model. A stored session is validated in the
// background: chat opens immediately, and only a rejected token forces
// the sign-in ceremony.
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.screen.Init()}
	if a.kind == ScreenChat {
		client := a.deps.Client
		cmds = append(cmds, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_, _, err := client.CheckAuth(ctx)
			return authCheckedMsg{err: err}
		})
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.deps.Width = msg.Width
		a.deps.Height = msg.Height

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

	case switchScreenMsg:
		a.kind = msg.kind
		a.screen = NewScreen(msg.kind, a.deps)
		return a, a.screen.Init()

	case authCheckedMsg:
		// Only a definitive rejection interrupts the session; a network
		// failure here proves nothing about the token.
		if errors.Is(msg.err, kagi.ErrNotAuthenticated) {
			a.kind = ScreenSignin
			a.screen = NewScreen(ScreenSignin, a.deps)
			return a, a.screen.Init()
		}
		return a, nil
	}

	screen, cmd := a.screen.Update(msg)
	a.screen = screen
	return a, cmd
}

// View implements tea.Model.
func (a *App) View() string {
	return a.screen.View()
}
