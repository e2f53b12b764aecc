// internal/settings/settings_test.go
package settings

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaults(t *testing.T) {
	s := Default()
	if s.Provider != ProviderGoogle {
		t.Errorf("expected google default provider, got %s", s.Provider)
	}
	if s.ModelName != "gemini-2.5-flash" {
		t.Errorf("unexpected default model %s", s.ModelName)
	}
	if !s.Stateful() {
		t.Error("expected google provider to be stateful")
	}
}

func TestApplyProviderDefaults(t *testing.T) {
	s := Default()
	s.APIKey = "sk-secret"

	s.ApplyProviderDefaults(ProviderOpenAI)
	if s.APIEndpoint != "https://api.openai.com/v1" || s.ModelName != "gpt-4o-mini" {
		t.Errorf("openai defaults not applied: %q %q", s.APIEndpoint, s.ModelName)
	}
	if s.APIKey != "sk-secret" {
		t.Error("provider change must not touch the api key")
	}
	if s.Stateful() {
		t.Error("openai provider must not be stateful")
	}

	// Custom keeps whatever is currently set.
	s.APIEndpoint = "https://llm.example.com/v1"
	s.ModelName = "local-model"
	s.ApplyProviderDefaults(ProviderCustom)
	if s.APIEndpoint != "https://llm.example.com/v1" || s.ModelName != "local-model" {
		t.Error("custom provider must keep current endpoint and model")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	st := Open(dir)
	want := Settings{
		Provider:    ProviderOpenAI,
		APIKey:      "sk-test",
		APIEndpoint: "https://api.openai.com/v1",
		ModelName:   "gpt-4o-mini",
	}
	if err := st.Save(want); err != nil {
		t.Fatal(err)
	}

	reloaded := Open(dir)
	if got := reloaded.Current(); got != want {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestEnvKeyStaysOffDisk(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "env-secret")
	dir := t.TempDir()

	st := Open(dir)
	if st.Current().APIKey != "env-secret" {
		t.Fatalf("expected env-seeded key, got %q", st.Current().APIKey)
	}

	// Saving an unrelated field must not write the env secret out.
	s := st.Current()
	s.ModelName = "gemini-2.5-pro"
	if err := st.Save(s); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "settings.json"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "env-secret") {
		t.Error("environment key leaked into settings.json")
	}
	if st.Current().APIKey != "env-secret" {
		t.Error("env key must survive in memory across saves")
	}
	if st.Current().ModelName != "gemini-2.5-pro" {
		t.Error("unrelated edit lost")
	}

	// An explicitly entered key is persisted as usual.
	s = st.Current()
	s.APIKey = "sk-typed"
	if err := st.Save(s); err != nil {
		t.Fatal(err)
	}
	data, err = os.ReadFile(filepath.Join(dir, "settings.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "sk-typed") {
		t.Error("explicit key missing from settings.json")
	}
}

func TestOpenToleratesCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "settings.json"), []byte("{oops"), 0o600); err != nil {
		t.Fatal(err)
	}

	st := Open(dir)
	if st.Current().Provider != ProviderGoogle {
		t.Error("expected defaults after corrupt settings file")
	}
}

func TestOpenMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	// A partial record from an older version: only the key is present.
	if err := os.WriteFile(filepath.Join(dir, "settings.json"), []byte(`{"api_key":"k"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	st := Open(dir)
	got := st.Current()
	if got.APIKey != "k" {
		t.Errorf("expected loaded key, got %q", got.APIKey)
	}
	if got.Provider != ProviderGoogle || got.ModelName != "gemini-2.5-flash" {
		t.Error("missing fields must keep their defaults")
	}
}
