// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package settings persists user preferences as a closed set of named
// keys with documented defaults.
package settings

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"

	"github.com/jeranaias/kagi-tui/internal/util"
)

// =============================================================================
// KEYS
// =============================================================================

// Key names one persisted setting. The set is closed: only the keys
// declared here exist.
type Key string

const (
	// KeySessionToken is the stored session credential (default: empty).
	KeySessionToken Key = "session_token"

	// KeyDraft is the unsent composer draft (default: empty).
	KeyDraft Key = "draft"

	// KeyLastThread is the last-open thread id (default: empty).
	KeyLastThread Key = "last_thread"

	// KeyProfile is the selected profile id (default: empty).
	KeyProfile Key = "profile"

	// KeyRecentProfiles is a comma-joined most-recently-used profile id
	// list (default: empty).
	KeyRecentProfiles Key = "recent_profiles"

	// KeyCompanion is the selected companion id (default: empty).
	KeyCompanion Key = "companion"

	// KeyInternetAccess toggles internet access in the submission profile
	// block (default: true).
	KeyInternetAccess Key = "internet_access"

	// KeyPersonalizations toggles personalization in the submission
	// profile block (default: false).
	KeyPersonalizations Key = "personalizations"

	// KeyTemporaryChats starts new chats as temporary threads
	// (default: false).
	KeyTemporaryChats Key = "temporary_chats"
)

// Documented defaults for the closed key set.
var (
	stringDefaults = map[Key]string{
		KeySessionToken:   "",
		KeyDraft:          "",
		KeyLastThread:     "",
		KeyProfile:        "",
		KeyRecentProfiles: "",
		KeyCompanion:      "",
	}

	boolDefaults = map[Key]bool{
		KeyInternetAccess:   true,
		KeyPersonalizations: false,
		KeyTemporaryChats:   false,
	}
)

// =============================================================================
// STORE
// =============================================================================

// fileFormat is the on-disk TOML shape.
type fileFormat struct {
	Strings map[string]string `toml:"strings"`
	Bools   map[string]bool   `toml:"bools"`
}

// Store is the injected settings store. Safe for concurrent use.
type Store struct {
	path string

	mu      sync.RWMutex
	strings map[Key]string
	bools   map[Key]bool

	watcher  *fsnotify.Watcher
	onChange func()
}

// DefaultPath returns the settings file location under the state dir.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "settings.toml"
	}
	return filepath.Join(home, ".kagi-tui", "settings.toml")
}

// Open loads the store from path, tolerating a missing file.
func Open(path string) (*Store, error) {
	s := &Store{
		path:    path,
		strings: make(map[Key]string),
		bools:   make(map[Key]bool),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var file fileFormat
	if err := toml.Unmarshal(data, &file); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.strings = make(map[Key]string)
	s.bools = make(map[Key]bool)
	for k, v := range file.Strings {
		if _, known := stringDefaults[Key(k)]; known {
			s.strings[Key(k)] = v
		}
	}
	for k, v := range file.Bools {
		if _, known := boolDefaults[Key(k)]; known {
			s.bools[Key(k)] = v
		}
	}
	return nil
}

// save writes the current values atomically.
func (s *Store) save() error {
	s.mu.RLock()
	file := fileFormat{
		Strings: make(map[string]string, len(s.strings)),
		Bools:   make(map[string]bool, len(s.bools)),
	}
	for k, v := range s.strings {
		file.Strings[string(k)] = v
	}
	for k, v := range s.bools {
		file.Bools[string(k)] = v
	}
	s.mu.RUnlock()

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(file); err != nil {
		return err
	}
	return util.AtomicWriteFile(s.path, buf.Bytes(), 0600)
}

// =============================================================================
// ACCESSORS
// =============================================================================

// GetString returns the value for a string key, or its default. Unknown
// keys return the empty string.
func (s *Store) GetString(key Key) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.strings[key]; ok {
		return v
	}
	return stringDefaults[key]
}

// SetString stores and persists a string key. Unknown keys are ignored.
func (s *Store) SetString(key Key, value string) error {
	if _, known := stringDefaults[key]; !known {
		return nil
	}
	s.mu.Lock()
	s.strings[key] = value
	s.mu.Unlock()
	return s.save()
}

// GetBool returns the value for a bool key, or its default. Unknown keys
// return false.
func (s *Store) GetBool(key Key) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.bools[key]; ok {
		return v
	}
	return boolDefaults[key]
}

// SetBool stores and persists a bool key. Unknown keys are ignored.
func (s *Store) SetBool(key Key, value bool) error {
	if _, known := boolDefaults[key]; !known {
		return nil
	}
	s.mu.Lock()
	s.bools[key] = value
	s.mu.Unlock()
	return s.save()
}

// =============================================================================
// WATCHING
// =============================================================================

// Watch reloads the store when the file changes on disk and invokes
// onChange after each successful reload.
func (s *Store) Watch(onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return err
	}

	s.watcher = watcher
	s.onChange = onChange

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != s.path || !event.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				if err := s.load(); err != nil {
					log.Printf("settings: reload failed: %v", err)
					continue
				}
				if s.onChange != nil {
					s.onChange()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("settings: watch error: %v", err)
			}
		}
	}()
	return nil
}

// Close stops the watcher, if any.
func (s *Store) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
