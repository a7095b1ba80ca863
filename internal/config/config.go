// Package config handles loading and managing configuration for lmsready.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LMStudioProviderID is the key of the built-in LM Studio provider entry.
const LMStudioProviderID = "lmstudio"

// DefaultLMStudioBaseURL is the base URL of the built-in LM Studio provider.
const DefaultLMStudioBaseURL = "http://localhost:1234/v1"

// DefaultOSSModel is the model used when the configuration does not name one.
const DefaultOSSModel = "openai/gpt-oss-20b"

// Config holds all application configuration.
type Config struct {
	Model          string                    `yaml:"model"`
	ModelProviders map[string]ProviderConfig `yaml:"model_providers"`
	Logging        LoggingConfig             `yaml:"logging"`
}

// ProviderConfig describes how to reach a model-serving backend.
type ProviderConfig struct {
	DisplayName string `yaml:"display_name,omitempty"`
	BaseURL     string `yaml:"base_url,omitempty"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// Load reads configuration from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Set defaults
	cfg.setDefaults()

	return &cfg, nil
}

// LoadFromDir loads configuration from the standard config directory.
func LoadFromDir(configDir string) (*Config, error) {
	configPath := filepath.Join(configDir, "config.yaml")
	return Load(configPath)
}

// setDefaults applies default values for any unset fields.
// A provider entry defined in the file is kept as written, even with an
// empty base_url.
func (c *Config) setDefaults() {
	if c.Model == "" {
		c.Model = DefaultOSSModel
	}
	if c.ModelProviders == nil {
		c.ModelProviders = make(map[string]ProviderConfig)
	}
	if _, ok := c.ModelProviders[LMStudioProviderID]; !ok {
		c.ModelProviders[LMStudioProviderID] = ProviderConfig{
			DisplayName: "LM Studio",
			BaseURL:     DefaultLMStudioBaseURL,
		}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// GetProvider returns the provider entry for the given ID.
func (c *Config) GetProvider(id string) (ProviderConfig, bool) {
	p, ok := c.ModelProviders[id]
	return p, ok
}

// ResolveModel returns the model to use, preferring override when set.
func (c *Config) ResolveModel(override string) string {
	if override != "" {
		return override
	}
	if c.Model == "" {
		return DefaultOSSModel
	}
	return c.Model
}
