package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	DefaultTrigger     = "@ava"
	DefaultOpenAIModel = "gpt-4o"
	DefaultImageModel  = "dall-e-3"
	DefaultOllamaURL   = "http://localhost:11434"
	DefaultOllamaModel = "llama3.2"
	DefaultBridgeURL   = "http://localhost:12345"
)

type Config struct {
	Bridge  BridgeConfig  `json:"bridge"`
	Trigger TriggerConfig `json:"trigger"`
	OpenAI  OpenAIConfig  `json:"openai"`
	Ollama  OllamaConfig  `json:"ollama"`
}

type BridgeConfig struct {
	URL      string `json:"url"`
	Password string `json:"password,omitempty"`
}

type TriggerConfig struct {
	Word string `json:"word"`
}

type OpenAIConfig struct {
	APIKey     string `json:"apiKey,omitempty"`
	BaseURL    string `json:"baseUrl,omitempty"`
	Model      string `json:"model"`
	ImageModel string `json:"imageModel"`
}

type OllamaConfig struct {
	URL   string `json:"url"`
	Model string `json:"model"`
}

func DefaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			URL: DefaultBridgeURL,
		},
		Trigger: TriggerConfig{
			Word: DefaultTrigger,
		},
		OpenAI: OpenAIConfig{
			Model:      DefaultOpenAIModel,
			ImageModel: DefaultImageModel,
		},
		Ollama: OllamaConfig{
			URL:   DefaultOllamaURL,
			Model: DefaultOllamaModel,
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".avaclaw")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if url := os.Getenv("AVACLAW_BRIDGE_URL"); url != "" {
		cfg.Bridge.URL = url
	}
	if pw := os.Getenv("AVACLAW_BRIDGE_PASSWORD"); pw != "" {
		cfg.Bridge.Password = pw
	}
	if word := os.Getenv("AVACLAW_TRIGGER"); word != "" {
		cfg.Trigger.Word = word
	}
	if key := os.Getenv("AVACLAW_OPENAI_API_KEY"); key != "" {
		cfg.OpenAI.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = key
	}
	if url := os.Getenv("AVACLAW_OPENAI_BASE_URL"); url != "" {
		cfg.OpenAI.BaseURL = url
	}
	if model := os.Getenv("AVACLAW_OPENAI_MODEL"); model != "" {
		cfg.OpenAI.Model = model
	}
	if url := os.Getenv("AVACLAW_OLLAMA_URL"); url != "" {
		cfg.Ollama.URL = url
	}
	if model := os.Getenv("AVACLAW_OLLAMA_MODEL"); model != "" {
		cfg.Ollama.Model = model
	}

	return cfg, nil
}

// Validate performs absence checks only; reachability is the poller's problem.
func (c *Config) Validate() error {
	if c.Bridge.URL == "" {
		return fmt.Errorf("bridge url is required")
	}
	if c.Trigger.Word == "" {
		return fmt.Errorf("trigger word is required")
	}
	if c.OpenAI.APIKey == "" && c.Ollama.URL == "" {
		return fmt.Errorf("configure at least one AI backend (openai apiKey or ollama url)")
	}
	return nil
}

func SaveConfig(cfg *Config) error {
	if err := os.MkdirAll(ConfigDir(), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(ConfigPath(), data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
