package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if cfg.Analysis.Provider != "anthropic" {
		t.Errorf("expected provider 'anthropic', got %q", cfg.Analysis.Provider)
	}
	if cfg.Analysis.AnthropicModel != "claude-sonnet-4-20250514" {
		t.Errorf("unexpected anthropic model %q", cfg.Analysis.AnthropicModel)
	}
	if cfg.Extraction.MaxAds != 10 {
		t.Errorf("expected max_ads 10, got %d", cfg.Extraction.MaxAds)
	}
	if cfg.Agent.TimeoutMinutes != 10 {
		t.Errorf("expected timeout_minutes 10, got %d", cfg.Agent.TimeoutMinutes)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
analysis:
  provider: openai
extraction:
  country: DE
server:
  port: 9000
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Analysis.Provider != "openai" {
		t.Errorf("expected provider 'openai', got %q", cfg.Analysis.Provider)
	}
	if cfg.Extraction.Country != "DE" {
		t.Errorf("expected country 'DE', got %q", cfg.Extraction.Country)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Agent.URL != "http://localhost:9222" {
		t.Errorf("expected default agent url, got %q", cfg.Agent.URL)
	}
	if cfg.Analysis.MaxTokens != 1024 {
		t.Errorf("expected default max_tokens, got %d", cfg.Analysis.MaxTokens)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Extraction.Country != "UK" {
		t.Errorf("expected country 'UK' from file, got %q", cfg.Extraction.Country)
	}
}

func TestResolveConfigPathExplicitMissing(t *testing.T) {
	if _, err := ResolveConfigPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config path")
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	if cfg.GetDataDir() == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
}
