// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui implements the terminal interface.
package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/kagi-tui/internal/convo"
	"github.com/jeranaias/kagi-tui/internal/kagi"
	"github.com/jeranaias/kagi-tui/internal/settings"
)

// =============================================================================
// SCREEN REGISTRY
// =============================================================================

// ScreenKind enumerates every screen the application has. The set is
// closed; screens are constructed only through NewScreen.
type ScreenKind int

const (
	ScreenChat ScreenKind = iota
	ScreenThreads
	ScreenProfiles
	ScreenCompanions
	ScreenSignin
)

// Screen is one full-terminal view. Screens communicate with the app
// model via messages, not callbacks.
type Screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Screen, tea.Cmd)
	View() string
}

// Deps carries the explicit dependencies screens are built from.
type Deps struct {
	Client   *kagi.Client
	Engine   *convo.Engine
	Store    *settings.Store
	Styles   Styles
	Width    int
	Height   int
}

// NewScreen is the factory mapping screen kinds to constructors.
func NewScreen(kind ScreenKind, deps Deps) Screen {
	switch kind {
	case ScreenChat:
		return newChatScreen(deps)
	case ScreenThreads:
		return newThreadsScreen(deps)
	case ScreenProfiles:
		return newProfilesScreen(deps)
	case ScreenCompanions:
		return newCompanionsScreen(deps)
	case ScreenSignin:
		return newSigninScreen(deps)
	default:
		return newChatScreen(deps)
	}
}

// =============================================================================
// NAVIGATION MESSAGES
// =============================================================================

// switchScreenMsg asks the app model to replace the active screen.
type switchScreenMsg struct {
	kind ScreenKind
}

// switchScreen builds the navigation command for a screen kind.
func switchScreen(kind ScreenKind) tea.Cmd {
	return func() tea.Msg { return switchScreenMsg{kind: kind} }
}
