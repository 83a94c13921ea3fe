// Package config handles application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Results  ResultsConfig  `yaml:"results,omitempty"`
	Server   ServerConfig   `yaml:"server,omitempty"`
}

// APIConfig holds model endpoint settings. BaseURL may point at any
// OpenAI-compatible endpoint.
type APIConfig struct {
	Key     string `yaml:"key"`
	BaseURL string `yaml:"base_url,omitempty"`
	Model   string `yaml:"model"`
}

// DefaultsConfig holds default run settings.
type DefaultsConfig struct {
	Strategy      string  `yaml:"strategy"`
	Benchmark     string  `yaml:"benchmark"`
	PacingSeconds float64 `yaml:"pacing_seconds"`
}

// ResultsConfig holds artifact and dataset locations.
type ResultsConfig struct {
	Dir     string `yaml:"dir"`
	DataDir string `yaml:"data_dir"`
}

// ServerConfig holds server settings.
type ServerConfig struct {
	Port   int    `yaml:"port"`
	DBPath string `yaml:"db_path,omitempty"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			Model: "gpt-4o-mini",
		},
		Defaults: DefaultsConfig{
			Strategy:      "debate",
			Benchmark:     "gpqa",
			PacingSeconds: 1,
		},
		Results: ResultsConfig{
			Dir:     "results",
			DataDir: "data",
		},
		Server: ServerConfig{
			Port: 8182,
		},
	}
}

// Load loads configuration from the default path.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigPath())
}

// LoadFrom loads configuration from a specific path.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No config file, proceed with defaults
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Apply .env overrides if file exists
	if env, err := LoadEnv(".env"); err == nil {
		ApplyEnvOverrides(cfg, env)
	}

	return cfg, nil
}

// Save saves the configuration to the default path.
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigPath())
}

// SaveTo saves the configuration to a specific path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "disputa.yaml"
	}
	return filepath.Join(home, ".disputa", "config.yaml")
}

// GenerateExample generates an example configuration file.
func GenerateExample() string {
	example := `# disputa configuration file
# Place this file at ~/.disputa/config.yaml

api:
  key: ""                   # API key (or set API_KEY in .env)
  base_url: ""              # OpenAI-compatible endpoint (empty = api.openai.com)
  model: gpt-4o-mini        # Chat model name

defaults:
  strategy: debate          # Default dialogue strategy
  benchmark: gpqa           # Default benchmark
  pacing_seconds: 1         # Delay between dialogue turns

results:
  dir: results              # Where run artifacts are written
  data_dir: data            # Where benchmark dataset snapshots live

server:
  port: 8182                # Web server port
  db_path: ""               # Session database (empty = ~/.disputa/disputa.db)
`
	return example
}
