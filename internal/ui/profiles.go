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

// maxRecentProfiles bounds the most-recently-used list persisted across
// sessions.
const maxRecentProfiles = 5

// profilesLoadedMsg delivers the profile list or the fetch error.
type profilesLoadedMsg struct {
	profiles []kagi.Profile
	err      error
}

// =============================================================================
// PROFILES SCREEN
// =============================================================================

// profilesScreen picks the model configuration used for submissions.
type profilesScreen struct {
	deps Deps

	state    convo.CallState
	spin     spinner.Model
	profiles []kagi.Profile
	cursor   int
	errmsg   string
}

func newProfilesScreen(deps Deps) Screen {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	return &profilesScreen{deps: deps, spin: spin, state: convo.CallFetching}
}

func (p *profilesScreen) fetch() tea.Cmd {
	client := p.deps.Client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		profiles, err := client.ListProfiles(ctx)
		return profilesLoadedMsg{profiles: profiles, err: err}
	}
}

func (p *profilesScreen) Init() tea.Cmd {
	return tea.Batch(p.spin.Tick, p.fetch())
}

func (p *profilesScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case profilesLoadedMsg:
		if msg.err != nil {
			p.state = convo.CallErrored
			p.errmsg = msg.err.Error()
			return p, nil
		}
		p.state = convo.CallOK
		p.profiles = orderRecentFirst(msg.profiles, p.deps.Store.GetString(settings.KeyRecentProfiles))
		// Start the cursor on the active profile.
		current := p.deps.Store.GetString(settings.KeyProfile)
		for i, profile := range p.profiles {
			if profile.ID == current {
				p.cursor = i
				break
			}
		}
		return p, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		p.spin, cmd = p.spin.Update(msg)
		return p, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "q":
			return p, switchScreen(ScreenChat)
		case "up", "k":
			if p.cursor > 0 {
				p.cursor--
			}
		case "down", "j":
			if p.cursor < len(p.profiles)-1 {
				p.cursor++
			}
		case "r":
			p.state = convo.CallFetching
			return p, p.fetch()
		case "i":
			p.deps.Store.SetBool(settings.KeyInternetAccess, !p.deps.Store.GetBool(settings.KeyInternetAccess))
			p.applySelected(false)
		case "z":
			p.deps.Store.SetBool(settings.KeyPersonalizations, !p.deps.Store.GetBool(settings.KeyPersonalizations))
			p.applySelected(false)
		case "enter":
			p.applySelected(true)
			return p, switchScreen(ScreenChat)
		}
	}
	return p, nil
}

// applySelected pushes the cursor's profile into the engine and, when
// persist is set, records it as the active and most recent choice.
func (p *profilesScreen) applySelected(persist bool) {
	if p.cursor >= len(p.profiles) {
		return
	}
	profile := p.profiles[p.cursor]

	p.deps.Engine.SetProfile(kagi.ProfileRequest{
		ID:               profile.ID,
		Model:            profile.Model,
		InternetAccess:   p.deps.Store.GetBool(settings.KeyInternetAccess),
		Personalizations: p.deps.Store.GetBool(settings.KeyPersonalizations),
		LensID:           p.deps.Store.GetString(settings.KeyCompanion),
	})

	if persist {
		p.deps.Store.SetString(settings.KeyProfile, profile.ID)
		p.deps.Store.SetString(settings.KeyRecentProfiles,
			pushRecent(p.deps.Store.GetString(settings.KeyRecentProfiles), profile.ID))
	}
}

func (p *profilesScreen) View() string {
	var b strings.Builder
	b.WriteString(p.deps.Styles.Title.Render("Profiles"))
	b.WriteString("\n\n")

	switch p.state {
	case convo.CallFetching:
		b.WriteString(p.spin.View())
		b.WriteString(p.deps.Styles.Dim.Render(" loading profiles..."))
		b.WriteString("\n")

	case convo.CallErrored:
		b.WriteString(p.deps.Styles.Error.Render(p.errmsg))
		b.WriteString("\n")
		b.WriteString(p.deps.Styles.Dim.Render("r to retry, esc to go back"))
		b.WriteString("\n")

	case convo.CallOK:
		current := p.deps.Store.GetString(settings.KeyProfile)
		width := p.deps.Width
		if width <= 0 {
			width = 80
		}
		for i, profile := range p.profiles {
			detail := util.TruncateWidth(profile.ModelProviderName+" / "+profile.ModelName, width-34)
			line := util.PadWidth(profile.Name, 28) + p.deps.Styles.Dim.Render(detail)
			if profile.ID == current {
				line += " *"
			}
			if i == p.cursor {
				b.WriteString(p.deps.Styles.Selected.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
	}

	internet := "off"
	if p.deps.Store.GetBool(settings.KeyInternetAccess) {
		internet = "on"
	}
	personal := "off"
	if p.deps.Store.GetBool(settings.KeyPersonalizations) {
		personal = "on"
	}
	b.WriteString("\n")
	b.WriteString(p.deps.Styles.StatusBar.Render(" enter select · i internet: " + internet + " · z personalize: " + personal + " · r refresh · esc back "))
	return b.String()
}

// =============================================================================
// RECENCY LIST
// =============================================================================

// orderRecentFirst stable-sorts the most recently used profiles to the
// front, preserving the server order for the rest.
func orderRecentFirst(profiles []kagi.Profile, recent string) []kagi.Profile {
	ids := splitRecent(recent)
	if len(ids) == 0 {
		return profiles
	}

	out := make([]kagi.Profile, 0, len(profiles))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		for _, profile := range profiles {
			if profile.ID == id && !seen[id] {
				out = append(out, profile)
				seen[id] = true
			}
		}
	}
	for _, profile := range profiles {
		if !seen[profile.ID] {
			out = append(out, profile)
		}
	}
	return out
}

// pushRecent moves id to the front of the comma-joined recency list,
// deduplicated and capped.
func pushRecent(recent, id string) string {
	ids := []string{id}
	for _, prev := range splitRecent(recent) {
		if prev != id && len(ids) < maxRecentProfiles {
			ids = append(ids, prev)
		}
	}
	return strings.Join(ids, ",")
}

func splitRecent(recent string) []string {
	var ids []string
	for _, id := range strings.Split(recent, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
