// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui implements the terminal interface.
package ui

import (
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// =============================================================================
// STYLES
// =============================================================================

// Styles holds the lipgloss styles shared by all screens.
type Styles struct {
	Title     lipgloss.Style
	UserLabel lipgloss.Style
	BotLabel  lipgloss.Style
	Dim       lipgloss.Style
	Error     lipgloss.Style
	Warning   lipgloss.Style
	Selected  lipgloss.Style
	Group     lipgloss.Style
	StatusBar lipgloss.Style
	Citation  lipgloss.Style
}

// DefaultStyles returns the default color scheme.
func DefaultStyles() Styles {
	return Styles{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		UserLabel: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		BotLabel:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")),
		Dim:       lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Warning:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Selected:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57")),
		Group:     lipgloss.NewStyle().Bold(true).Underline(true),
		StatusBar: lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("236")),
		Citation:  lipgloss.NewStyle().Foreground(lipgloss.Color("75")),
	}
}

// NewMarkdownRenderer builds the glamour renderer used for assistant
// output, matching the terminal's background.
func NewMarkdownRenderer(width int) (*glamour.TermRenderer, error) {
	style := glamour.WithStandardStyle("notty")
	if termenv.HasDarkBackground() {
		style = glamour.WithStandardStyle("dark")
	} else if termenv.ColorProfile() != termenv.Ascii {
		style = glamour.WithStandardStyle("light")
	}

	return glamour.NewTermRenderer(
		style,
		glamour.WithWordWrap(width),
	)
}
