// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui implements the terminal interface.
package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/kagi-tui/internal/kagi"
	"github.com/jeranaias/kagi-tui/internal/settings"
)

// signinPollInterval is the gap between pairing-confirmation polls.
const signinPollInterval = 2 * time.Second

// =============================================================================
// MESSAGES
// =============================================================================

// signinStartedMsg delivers the pairing state or the scrape error.
type signinStartedMsg struct {
	qr  *kagi.QRSignin
	err error
}

// signinPolledMsg reports one poll: a session token, pending, or failure.
type signinPolledMsg struct {
	token string
	err   error
}

// signinTickMsg schedules the next poll.
type signinTickMsg struct{}

// =============================================================================
// SIGN-IN SCREEN
// =============================================================================

// signinScreen runs the QR pairing ceremony: it shows the pairing URL and
// polls until another authenticated device confirms it.
type signinScreen struct {
	deps Deps

	spin   spinner.Model
	qr     *kagi.QRSignin
	errmsg string
}

func newSigninScreen(deps Deps) Screen {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	return &signinScreen{deps: deps, spin: spin}
}

func (s *signinScreen) start() tea.Cmd {
	client := s.deps.Client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		qr, err := client.StartQRSignin(ctx)
		return signinStartedMsg{qr: qr, err: err}
	}
}

func (s *signinScreen) poll() tea.Cmd {
	client := s.deps.Client
	qr := s.qr
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		token, err := client.PollQRSignin(ctx, qr)
		return signinPolledMsg{token: token, err: err}
	}
}

func tickSignin() tea.Cmd {
	return tea.Tick(signinPollInterval, func(time.Time) tea.Msg {
		return signinTickMsg{}
	})
}

func (s *signinScreen) Init() tea.Cmd {
	return tea.Batch(s.spin.Tick, s.start())
}

func (s *signinScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case signinStartedMsg:
		if msg.err != nil {
			s.errmsg = msg.err.Error()
			return s, nil
		}
		s.qr = msg.qr
		s.errmsg = ""
		return s, tickSignin()

	case signinTickMsg:
		if s.qr == nil {
			return s, nil
		}
		return s, s.poll()

	case signinPolledMsg:
		if msg.err != nil {
			if errors.Is(msg.err, kagi.ErrAuthPending) {
				return s, tickSignin()
			}
			// Anything else invalidates the pairing; start over.
			s.errmsg = msg.err.Error()
			s.qr = nil
			return s, s.start()
		}
		s.deps.Store.SetString(settings.KeySessionToken, msg.token)
		return s, switchScreen(ScreenChat)

	case spinner.TickMsg:
		var cmd tea.Cmd
		s.spin, cmd = s.spin.Update(msg)
		return s, cmd

	case tea.KeyMsg:
		if msg.String() == "r" {
			s.qr = nil
			s.errmsg = ""
			return s, s.start()
		}
	}
	return s, nil
}

func (s *signinScreen) View() string {
	var b strings.Builder
	b.WriteString(s.deps.Styles.Title.Render("Sign in to Kagi"))
	b.WriteString("\n\n")

	switch {
	case s.errmsg != "":
		b.WriteString(s.deps.Styles.Error.Render(s.errmsg))
		b.WriteString("\n")
		b.WriteString(s.deps.Styles.Dim.Render("r to retry"))
		b.WriteString("\n")

	case s.qr == nil:
		b.WriteString(s.spin.View())
		b.WriteString(s.deps.Styles.Dim.Render(" preparing sign-in..."))
		b.WriteString("\n")

	default:
		b.WriteString("Open this link on a device where you are already signed in:\n\n")
		b.WriteString("  " + s.deps.Styles.Selected.Render(s.qr.URL))
		b.WriteString("\n\n")
		b.WriteString(s.spin.View())
		b.WriteString(s.deps.Styles.Dim.Render(" waiting for confirmation..."))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(s.deps.Styles.StatusBar.Render(" r restart · ctrl+c quit "))
	return b.String()
}
