package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Trigger.Word != "@ava" {
		t.Errorf("Trigger.Word = %q, want @ava", cfg.Trigger.Word)
	}
	if cfg.OpenAI.Model != "gpt-4o" {
		t.Errorf("OpenAI.Model = %q, want gpt-4o", cfg.OpenAI.Model)
	}
	if cfg.Ollama.URL != "http://localhost:11434" {
		t.Errorf("Ollama.URL = %q", cfg.Ollama.URL)
	}
}

func TestLoadConfig_FileAndEnvOverride(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("AVACLAW_OPENAI_API_KEY", "")

	dir := filepath.Join(home, ".avaclaw")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	fileCfg := map[string]any{
		"bridge":  map[string]any{"url": "http://bridge.local:1234", "password": "secret"},
		"trigger": map[string]any{"word": "@botty"},
	}
	data, _ := json.Marshal(fileCfg)
	if err := os.WriteFile(filepath.Join(dir, "config.json"), data, 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("AVACLAW_TRIGGER", "@envbot")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Bridge.URL != "http://bridge.local:1234" {
		t.Errorf("Bridge.URL = %q", cfg.Bridge.URL)
	}
	if cfg.Bridge.Password != "secret" {
		t.Errorf("Bridge.Password = %q", cfg.Bridge.Password)
	}
	if cfg.Trigger.Word != "@envbot" {
		t.Errorf("env override lost: Trigger.Word = %q", cfg.Trigger.Word)
	}
	// Defaults survive a partial file
	if cfg.OpenAI.Model != "gpt-4o" {
		t.Errorf("OpenAI.Model = %q, want default", cfg.OpenAI.Model)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Bridge.URL != DefaultBridgeURL {
		t.Errorf("Bridge.URL = %q, want default", cfg.Bridge.URL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults have ollama", func(c *Config) {}, false},
		{"no bridge url", func(c *Config) { c.Bridge.URL = "" }, true},
		{"no trigger", func(c *Config) { c.Trigger.Word = "" }, true},
		{"no backend at all", func(c *Config) { c.OpenAI.APIKey = ""; c.Ollama.URL = "" }, true},
		{"openai only", func(c *Config) { c.OpenAI.APIKey = "sk-test"; c.Ollama.URL = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
