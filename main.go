// kagi-tui - A terminal client for the Kagi Assistant.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/kagi-tui/internal/convo"
	"github.com/jeranaias/kagi-tui/internal/kagi"
	"github.com/jeranaias/kagi-tui/internal/settings"
	"github.com/jeranaias/kagi-tui/internal/tasks"
	"github.com/jeranaias/kagi-tui/internal/transport"
	"github.com/jeranaias/kagi-tui/internal/ui"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	settingsPath := flag.String("settings", settings.DefaultPath(), "settings file path")
	baseURL := flag.String("base-url", transport.DefaultBaseURL, "service base URL")
	flag.Parse()

	if *showVersion {
		fmt.Printf("kagi-tui %s (%s, %s)\n", Version, GitCommit, BuildDate)
		return
	}

	if err := run(*settingsPath, *baseURL); err != nil {
		fmt.Fprintln(os.Stderr, "kagi-tui:", err)
		os.Exit(1)
	}
}

func run(settingsPath, baseURL string) error {
	stateDir := filepath.Dir(settingsPath)
	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	// The terminal belongs to the TUI; logs go to a file.
	logFile, err := os.OpenFile(filepath.Join(stateDir, "kagi-tui.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	log.SetOutput(logFile)

	store, err := settings.Open(settingsPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	defer store.Close()

	tr, err := transport.NewClient(&transport.Config{
		BaseURL:      baseURL,
		SessionToken: store.GetString(settings.KeySessionToken),
	})
	if err != nil {
		return fmt.Errorf("create transport: %w", err)
	}

	client := kagi.NewClient(tr)
	scheduler := tasks.NewScheduler()
	defer scheduler.Stop()

	engine := convo.NewEngine(client, scheduler)
	applySettings(engine, store)

	// External edits to settings.toml take effect without a restart.
	if err := store.Watch(func() { applySettings(engine, store) }); err != nil {
		log.Printf("settings: watch unavailable: %v", err)
	}

	app := ui.NewApp(ui.Deps{
		Client: client,
		Engine: engine,
		Store:  store,
		Styles: ui.DefaultStyles(),
	})

	program := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}

	// Persist whatever session the transport ended up with.
	if token := tr.SessionToken(); token != "" {
		store.SetString(settings.KeySessionToken, token)
	}
	return nil
}

// applySettings pushes the persisted conversation preferences onto the
// engine. Called at startup and again whenever the settings file changes
// on disk.
func applySettings(engine *convo.Engine, store *settings.Store) {
	engine.SetTemporary(store.GetBool(settings.KeyTemporaryChats))
	engine.SetProfile(kagi.ProfileRequest{
		ID:               store.GetString(settings.KeyProfile),
		InternetAccess:   store.GetBool(settings.KeyInternetAccess),
		Personalizations: store.GetBool(settings.KeyPersonalizations),
		LensID:           store.GetString(settings.KeyCompanion),
	})
}
