package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Agent      Agent      `yaml:"agent"`
	Extraction Extraction `yaml:"extraction"`
	Analysis   Analysis   `yaml:"analysis"`
	Output     Output     `yaml:"output"`
	Server     Server     `yaml:"server"`
	Logging    Logging    `yaml:"logging"`
}

type Agent struct {
	URL            string `yaml:"url"`
	TimeoutMinutes int    `yaml:"timeout_minutes"`
}

type Extraction struct {
	Country    string `yaml:"country"`
	MaxAds     int    `yaml:"max_ads"`
	MaxRetries int    `yaml:"max_retries"`
}

type Analysis struct {
	Provider       string `yaml:"provider"`
	AnthropicModel string `yaml:"anthropic_model"`
	APIKeyEnv      string `yaml:"api_key_env"`
	OpenAIModel    string `yaml:"openai_model"`
	OpenAIKeyEnv   string `yaml:"openai_key_env"`
	MaxTokens      int    `yaml:"max_tokens"`
	PromptTemplate string `yaml:"prompt_template"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for adscope.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "adscope")
}

// DataDir returns the XDG data directory for adscope.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "adscope")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/adscope/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'adscope init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Agent: Agent{
			URL:            "http://localhost:9222",
			TimeoutMinutes: 10,
		},
		Extraction: Extraction{
			Country:    "UK",
			MaxAds:     10,
			MaxRetries: 3,
		},
		Analysis: Analysis{
			Provider:       "anthropic",
			AnthropicModel: "claude-sonnet-4-20250514",
			APIKeyEnv:      "ANTHROPIC_API_KEY",
			OpenAIModel:    "gpt-4o-mini",
			OpenAIKeyEnv:   "OPENAI_API_KEY",
			MaxTokens:      1024,
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
