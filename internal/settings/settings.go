// internal/settings/settings.go
package settings

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Provider selects the AI backend family.
type Provider string

const (
	// ProviderGoogle is the stateful SDK-backed provider.
	ProviderGoogle Provider = "google"
	// ProviderOpenAI is the stateless OpenAI-compatible REST provider.
	ProviderOpenAI Provider = "openai"
	// ProviderCustom is a stateless REST provider at a user-supplied endpoint.
	ProviderCustom Provider = "custom"
)

// Settings is the user-chosen AI provider configuration. Endpoint and model
// get provider defaults applied when the provider changes but remain
// independently editable afterward.
type Settings struct {
	Provider    Provider `json:"provider"`
	APIKey      string   `json:"api_key"`
	APIEndpoint string   `json:"api_endpoint"`
	ModelName   string   `json:"model_name"`
}

// Stateful reports whether the provider retains conversation state across
// calls via an SDK-side chat handle.
func (s Settings) Stateful() bool {
	return s.Provider == ProviderGoogle
}

// Default returns the documented startup settings.
func Default() Settings {
	s := Settings{Provider: ProviderGoogle}
	s.ApplyProviderDefaults(ProviderGoogle)
	return s
}

// ApplyProviderDefaults switches the provider and resets endpoint and model
// to that provider's documented defaults. The API key is never touched.
// ProviderCustom keeps whatever endpoint and model are already set.
func (s *Settings) ApplyProviderDefaults(p Provider) {
	s.Provider = p
	switch p {
	case ProviderGoogle:
		s.APIEndpoint = "https://generativelanguage.googleapis.com/v1beta"
		s.ModelName = "gemini-2.5-flash"
	case ProviderOpenAI:
		s.APIEndpoint = "https://api.openai.com/v1"
		s.ModelName = "gpt-4o-mini"
	case ProviderCustom:
	}
}

// Store persists one Settings record as settings.json under its root.
// It is loaded once at startup and written on every Save.
type Store struct {
	path string

	mu      sync.RWMutex
	current Settings
	envKey  string // API key seeded from the environment, never persisted
}

// Open loads persisted settings merged over defaults. Absence or a parse
// failure is logged and falls back to defaults; Open never fails.
func Open(root string) *Store {
	st := &Store{
		path:    filepath.Join(root, "settings.json"),
		current: Default(),
	}

	data, err := os.ReadFile(st.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("read settings file", "path", st.path, "error", err)
		}
		st.applyEnvKey()
		return st
	}

	// Unmarshal over the defaults so missing fields keep their default
	// values instead of zeroing out.
	loaded := st.current
	if err := json.Unmarshal(data, &loaded); err != nil {
		slog.Error("parse settings file, using defaults", "path", st.path, "error", err)
		st.applyEnvKey()
		return st
	}
	st.current = loaded
	st.applyEnvKey()
	return st
}

// applyEnvKey seeds an unset API key from the environment. The seeded value
// is remembered so Save can keep it off disk: saving an unrelated field must
// not materialize an environment secret into settings.json.
func (st *Store) applyEnvKey() {
	if st.current.APIKey != "" {
		return
	}
	switch st.current.Provider {
	case ProviderGoogle:
		st.envKey = os.Getenv("GOOGLE_API_KEY")
	case ProviderOpenAI:
		st.envKey = os.Getenv("OPENAI_API_KEY")
	default:
		st.envKey = os.Getenv("MINDMIRROR_API_KEY")
	}
	st.current.APIKey = st.envKey
}

// Current returns the active settings.
func (st *Store) Current() Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.current
}

// Save replaces the active settings and persists them atomically. A key that
// came from the environment stays in memory only; an explicitly entered key
// (any other value) is written out.
func (st *Store) Save(s Settings) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	persist := s
	if st.envKey != "" && persist.APIKey == st.envKey {
		persist.APIKey = ""
	}

	data, err := json.MarshalIndent(persist, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(st.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp := st.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp settings: %w", err)
	}
	if err := os.Rename(tmp, st.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp settings: %w", err)
	}

	st.current = s
	return nil
}
