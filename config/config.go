// Package config holds the runtime configuration of the hoot binary.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DriverBolt   = "bolt"
	DriverMemory = "memory"
)

type Config struct {
	Being     string          `toml:"being"`
	LogLevel  string          `toml:"log_level"`
	LogFormat string          `toml:"log_format"`
	Server    ServerConfig    `toml:"server"`
	Store     StoreConfig     `toml:"store"`
	Agent     AgentConfig     `toml:"agent"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	NATS      NATSConfig      `toml:"nats"`
	Providers ProvidersConfig `toml:"providers"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

func (s ServerConfig) Addr() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

type StoreConfig struct {
	Driver string `toml:"driver"`
	Path   string `toml:"path"`
}

type AgentConfig struct {
	MaxIterations int `toml:"max_iterations"`
	HistoryLimit  int `toml:"history_limit"`
	Parallelism   int `toml:"parallelism"`
}

type RetrievalConfig struct {
	TopK      int    `toml:"top_k"`
	Knowledge string `toml:"knowledge_dir,omitempty"`
}

type NATSConfig struct {
	URL    string `toml:"url,omitempty"`
	Prefix string `toml:"prefix,omitempty"`
}

type ProviderConfig struct {
	APIKey  string `toml:"api_key,omitempty"`
	BaseURL string `toml:"base_url,omitempty"`
	Model   string `toml:"model,omitempty"`
}

type ProvidersConfig struct {
	OpenRouter ProviderConfig `toml:"openrouter"`
	OpenAI     ProviderConfig `toml:"openai"`
	Anthropic  ProviderConfig `toml:"anthropic"`
	Google     ProviderConfig `toml:"google"`
	Local      ProviderConfig `toml:"local"`
}

func Default() *Config {
	return &Config{
		Being:     "being.yaml",
		LogLevel:  "info",
		LogFormat: "console",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Store: StoreConfig{
			Driver: DriverBolt,
			Path:   "hoot.db",
		},
		Agent: AgentConfig{
			MaxIterations: 5,
			HistoryLimit:  20,
			Parallelism:   8,
		},
		Retrieval: RetrievalConfig{
			TopK: 3,
		},
		NATS: NATSConfig{
			Prefix: "hoot.conversations",
		},
	}
}

// Load reads a TOML file over the defaults. A missing file is not an error
// when path is empty; the defaults are returned instead.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Decode(data, cfg)
}

// Decode applies TOML data on top of base and returns it.
func Decode(data []byte, base *Config) (*Config, error) {
	if base == nil {
		base = Default()
	}
	md, err := toml.Decode(string(data), base)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return base, nil
}

// ApplyEnv overlays environment variables. Empty variables are ignored.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str("HOOT_BEING", &c.Being)
	str("HOOT_HOST", &c.Server.Host)
	str("HOOT_DB_PATH", &c.Store.Path)
	str("HOOT_LOG_LEVEL", &c.LogLevel)
	str("NATS_URL", &c.NATS.URL)

	str("OPENROUTER_API_KEY", &c.Providers.OpenRouter.APIKey)
	str("OPENROUTER_MODEL_ID", &c.Providers.OpenRouter.Model)
	str("OPENAI_API_KEY", &c.Providers.OpenAI.APIKey)
	str("OPENAI_MODEL_ID", &c.Providers.OpenAI.Model)
	str("OPENAI_BASE_URL", &c.Providers.OpenAI.BaseURL)
	str("ANTHROPIC_API_KEY", &c.Providers.Anthropic.APIKey)
	str("ANTHROPIC_MODEL_ID", &c.Providers.Anthropic.Model)
	str("GOOGLE_API_KEY", &c.Providers.Google.APIKey)
	str("GOOGLE_MODEL_ID", &c.Providers.Google.Model)
	str("OLLAMA_HOST", &c.Providers.Local.BaseURL)
	str("OLLAMA_MODEL_ID", &c.Providers.Local.Model)

	if v, ok := lookup("HOOT_PORT"); ok && strings.TrimSpace(v) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("HOOT_PORT: %w", err)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	switch c.Store.Driver {
	case DriverMemory:
	case DriverBolt:
		if strings.TrimSpace(c.Store.Path) == "" {
			errs = append(errs, errors.New("store.path is required for the bolt driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver must be one of: %s, %s", DriverBolt, DriverMemory))
	}
	if c.Agent.MaxIterations < 1 {
		errs = append(errs, errors.New("agent.max_iterations must be at least 1"))
	}
	if c.Agent.HistoryLimit < 0 {
		errs = append(errs, errors.New("agent.history_limit cannot be negative"))
	}
	if c.Agent.Parallelism < 0 {
		errs = append(errs, errors.New("agent.parallelism cannot be negative"))
	}
	if c.Retrieval.TopK < 1 {
		errs = append(errs, errors.New("retrieval.top_k must be at least 1"))
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be console or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// Redact returns a copy with API keys masked for display.
func (c *Config) Redact() *Config {
	cp := *c
	cp.Providers.OpenRouter.APIKey = redactKey(c.Providers.OpenRouter.APIKey)
	cp.Providers.OpenAI.APIKey = redactKey(c.Providers.OpenAI.APIKey)
	cp.Providers.Anthropic.APIKey = redactKey(c.Providers.Anthropic.APIKey)
	cp.Providers.Google.APIKey = redactKey(c.Providers.Google.APIKey)
	cp.Providers.Local.APIKey = redactKey(c.Providers.Local.APIKey)
	return &cp
}

func redactKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// Write encodes the configuration as TOML.
func (c *Config) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
