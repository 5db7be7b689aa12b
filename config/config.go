// Package config loads gateway and provider settings from a YAML file.
//
// A minimal file:
//
//	gateway:
//	  base_url: http://localhost:8000
//	  timeout: 30s
//	providers:
//	  - provider: openai
//	    api_key: ${OPENAI_API_KEY}
//	  - provider: google
//	    api_key: ${GEMINI_API_KEY}
//	    base_url: https://generativelanguage.googleapis.com
//	  - provider: groq
//	    api_key: ${GROQ_API_KEY}
//	    models:
//	      - name: llama-3.3-70b-versatile
//	      - name: llama-4-scout
//	        capabilities: [image_agent]
//
// Providers without a models list use the preset model table of a known provider
// (openai, google, elevenlabs, anthropic). ${VAR} references in api_key and base_url are
// expanded from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/livellm/livellm-go"
)

const defaultTimeout = 30 * time.Second

// Config is the parsed configuration file.
type Config struct {
	Gateway   GatewayConfig    `yaml:"gateway"`
	Providers []ProviderConfig `yaml:"providers"`
}

// GatewayConfig locates the gateway.
type GatewayConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ProviderConfig is one provider entry. Entries are tried in file order.
type ProviderConfig struct {
	Provider string        `yaml:"provider"`
	APIKey   string        `yaml:"api_key"`
	BaseURL  string        `yaml:"base_url"`
	Models   []ModelConfig `yaml:"models"`
}

// ModelConfig describes a model exposed by a provider.
type ModelConfig struct {
	Name         string   `yaml:"name"`
	Capabilities []string `yaml:"capabilities"`
}

// Load reads YAML configuration from disk and validates the result.
func Load(path string) (Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config file %q: %w", absPath, err)
	}
	return cfg, nil
}

// Parse decodes and validates YAML configuration. Environment references are expanded
// and defaults applied.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Gateway.Timeout == 0 {
		cfg.Gateway.Timeout = defaultTimeout
	}
	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		p.APIKey = os.ExpandEnv(p.APIKey)
		p.BaseURL = os.ExpandEnv(p.BaseURL)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Gateway.BaseURL) == "" {
		return fmt.Errorf("gateway.base_url must be provided")
	}
	if u, err := url.Parse(c.Gateway.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("gateway.base_url %q must be an absolute URL", c.Gateway.BaseURL)
	}
	if c.Gateway.Timeout < 0 {
		return fmt.Errorf("gateway.timeout must not be negative, got %s", c.Gateway.Timeout)
	}
	if len(c.Providers) == 0 {
		return fmt.Errorf("at least one provider must be configured")
	}

	for i, p := range c.Providers {
		if err := validateProvider(i, p); err != nil {
			return err
		}
	}
	return nil
}

func validateProvider(i int, p ProviderConfig) error {
	if strings.TrimSpace(p.Provider) == "" {
		return fmt.Errorf("providers[%d]: provider must be provided", i)
	}
	if strings.TrimSpace(p.APIKey) == "" {
		return fmt.Errorf("provider %s: api_key must be provided", p.Provider)
	}
	if len(p.Models) == 0 {
		if _, ok := livellm.ProviderPreset(p.Provider); !ok {
			return fmt.Errorf("provider %s: models must be listed for providers without a preset", p.Provider)
		}
	}

	seen := make(map[string]bool, len(p.Models))
	for _, m := range p.Models {
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("provider %s: model name must not be empty", p.Provider)
		}
		if seen[m.Name] {
			return fmt.Errorf("provider %s: model %q listed twice", p.Provider, m.Name)
		}
		seen[m.Name] = true
		for _, c := range m.Capabilities {
			if _, err := livellm.ParseCapability(c); err != nil {
				return fmt.Errorf("provider %s: model %s: %w", p.Provider, m.Name, err)
			}
		}
	}
	return nil
}

// ProviderConfigs converts the provider entries to livellm provider configurations, in
// file order.
func (c Config) ProviderConfigs() ([]livellm.ProviderConfig, error) {
	out := make([]livellm.ProviderConfig, 0, len(c.Providers))
	for _, p := range c.Providers {
		if len(p.Models) == 0 {
			preset, ok := livellm.ProviderPreset(p.Provider)
			if !ok {
				return nil, fmt.Errorf("provider %s: no models and no preset", p.Provider)
			}
			out = append(out, preset(p.APIKey, p.BaseURL))
			continue
		}

		models := make([]livellm.Model, 0, len(p.Models))
		for _, m := range p.Models {
			var caps livellm.CapabilitySet
			for _, name := range m.Capabilities {
				c, err := livellm.ParseCapability(name)
				if err != nil {
					return nil, fmt.Errorf("provider %s: model %s: %w", p.Provider, m.Name, err)
				}
				caps = caps.With(c)
			}
			models = append(models, livellm.Model{Name: m.Name, Capabilities: caps})
		}
		out = append(out, livellm.ProviderConfig{
			Creds:  livellm.Creds{APIKey: p.APIKey, Provider: p.Provider, BaseURL: p.BaseURL},
			Models: models,
		})
	}
	return out, nil
}
