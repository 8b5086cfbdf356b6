// Package config loads orchestrator settings from a TOML file, a .env file
// and the process environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/TheHaywire/solid-fortnight/internal/memory"
	"github.com/TheHaywire/solid-fortnight/internal/orchestrator"
	"github.com/TheHaywire/solid-fortnight/internal/providers/llm"
	"github.com/TheHaywire/solid-fortnight/internal/tools"
)

// ErrMaxDepthUnset is returned by EngineOptions when neither the file nor the
// environment chose a decomposition depth limit.
var ErrMaxDepthUnset = errors.New("config: engine.max_depth must be set (positive limit, or -1 for unbounded)")

type Config struct {
	LLM      LLMConfig      `toml:"llm"`
	Engine   EngineConfig   `toml:"engine"`
	Memory   MemoryConfig   `toml:"memory"`
	Research ResearchConfig `toml:"research"`
	Server   ServerConfig   `toml:"server"`
	Events   EventsConfig   `toml:"events"`
}

// LLMConfig selects the model provider. API keys only come from the environment.
type LLMConfig struct {
	Provider      string `toml:"provider"` // openai|anthropic|gemini|gemini-http|mock, empty = auto
	Model         string `toml:"model"`
	OpenAIBaseURL string `toml:"openai_base_url"` // OpenAI-compatible endpoint
	AnthropicURL  string `toml:"anthropic_url"`
	GeminiBaseURL string `toml:"gemini_base_url"`
	TimeoutMS     int    `toml:"timeout_ms"`

	OpenAIKey    string `toml:"-"`
	AnthropicKey string `toml:"-"`
	GoogleKey    string `toml:"-"`
}

type EngineConfig struct {
	MaxAttempts     int  `toml:"max_attempts"`
	MaxDepth        int  `toml:"max_depth"`
	MaxWidth        int  `toml:"max_width"`
	Parallelism     int  `toml:"parallelism"`
	CancelOnFailure bool `toml:"cancel_on_failure"`

	maxDepthSet bool
}

type MemoryConfig struct {
	Backend string `toml:"backend"` // json|sqlite
	Path    string `toml:"path"`
}

type ResearchConfig struct {
	SearchURL   string `toml:"search_url"` // must contain one %s; empty disables web search
	MaxSources  int    `toml:"max_sources"`
	MaxBytes    int    `toml:"max_bytes"`
	PDFMaxPages int    `toml:"pdf_max_pages"`
}

type ServerConfig struct {
	Addr            string `toml:"addr"`
	PreviewMaxBytes int    `toml:"preview_max_bytes"`
}

type EventsConfig struct {
	NATSURL     string `toml:"nats_url"`
	NATSSubject string `toml:"nats_subject"`
	WebhookURL  string `toml:"webhook_url"`
}

// New returns a config with defaults. Engine.MaxDepth has no default.
func New() *Config {
	return &Config{
		LLM: LLMConfig{TimeoutMS: int(llm.DefaultTimeout / time.Millisecond)},
		Engine: EngineConfig{
			MaxAttempts: orchestrator.DefaultMaxAttempts,
			Parallelism: 1,
		},
		Memory:   MemoryConfig{Backend: memory.BackendJSON, Path: memory.DefaultPath},
		Research: ResearchConfig{MaxSources: 3, MaxBytes: tools.DefaultMaxBytes, PDFMaxPages: 20},
		Server:   ServerConfig{Addr: ":8080", PreviewMaxBytes: 20000},
		Events:   EventsConfig{NATSSubject: "orchestrator.events"},
	}
}

// LoadFile loads configuration from a TOML file on top of the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config %s: unknown keys %v", path, undecoded)
	}
	cfg.Engine.maxDepthSet = md.IsDefined("engine", "max_depth")
	return cfg, nil
}

// Load reads the optional TOML file, then .env (if present), then applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := New()
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.Model, "LLM_MODEL")
	setString(&c.LLM.OpenAIBaseURL, "OPENAI_BASE_URL")
	setString(&c.LLM.OpenAIKey, "OPENAI_API_KEY")
	setString(&c.LLM.AnthropicKey, "ANTHROPIC_API_KEY")
	setString(&c.LLM.GoogleKey, "GOOGLE_API_KEY")
	if c.LLM.GoogleKey == "" {
		setString(&c.LLM.GoogleKey, "GEMINI_API_KEY")
	}
	setString(&c.Memory.Path, "ORCH_MEMORY_PATH")
	setString(&c.Memory.Backend, "ORCH_MEMORY_BACKEND")
	setString(&c.Research.SearchURL, "ORCH_SEARCH_URL")
	setString(&c.Events.NATSURL, "NATS_URL")
	if v := strings.TrimSpace(getenv("PORT")); v != "" {
		c.Server.Addr = ":" + v
	}

	for _, o := range []struct {
		key string
		dst *int
	}{
		{"LLM_HTTP_TIMEOUT_MS", &c.LLM.TimeoutMS},
		{"ORCH_MAX_DEPTH", &c.Engine.MaxDepth},
		{"ORCH_MAX_ATTEMPTS", &c.Engine.MaxAttempts},
		{"ORCH_PARALLELISM", &c.Engine.Parallelism},
	} {
		v := strings.TrimSpace(getenv(o.key))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s=%q is not an integer", o.key, v)
		}
		*o.dst = n
		if o.key == "ORCH_MAX_DEPTH" {
			c.Engine.maxDepthSet = true
		}
	}
	return nil
}

// SetMaxDepth records an explicit depth limit, e.g. from a command-line flag.
func (c *Config) SetMaxDepth(depth int) {
	c.Engine.MaxDepth = depth
	c.Engine.maxDepthSet = true
}

// EngineOptions returns validated orchestrator options.
func (c *Config) EngineOptions() (orchestrator.Options, error) {
	if !c.Engine.maxDepthSet {
		return orchestrator.Options{}, ErrMaxDepthUnset
	}
	opts := orchestrator.Options{
		MaxAttempts:     c.Engine.MaxAttempts,
		MaxDepth:        c.Engine.MaxDepth,
		MaxWidth:        c.Engine.MaxWidth,
		Parallelism:     c.Engine.Parallelism,
		CancelOnFailure: c.Engine.CancelOnFailure,
	}
	if err := opts.Validate(); err != nil {
		return orchestrator.Options{}, err
	}
	return opts, nil
}

func (c *Config) LLMSettings() llm.Settings {
	return llm.Settings{
		Provider:     c.LLM.Provider,
		Model:        c.LLM.Model,
		OpenAIKey:    c.LLM.OpenAIKey,
		OpenAIBase:   c.LLM.OpenAIBaseURL,
		AnthropicKey: c.LLM.AnthropicKey,
		AnthropicURL: c.LLM.AnthropicURL,
		GoogleKey:    c.LLM.GoogleKey,
		GeminiBase:   c.LLM.GeminiBaseURL,
		Timeout:      time.Duration(c.LLM.TimeoutMS) * time.Millisecond,
	}
}

func (c *Config) ResearchTools() tools.ResearchConfig {
	return tools.ResearchConfig{
		SearchURL: c.Research.SearchURL,
		MaxBytes:  c.Research.MaxBytes,
		MaxPages:  c.Research.PDFMaxPages,
	}
}
