// Package config loads the unibase runtime configuration from a YAML file
// and environment variables. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/river-berlin/unibase/pkg/adapters/process"
)

// Supported providers and store backends.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// DefaultModels is the model used per provider when none is configured.
var DefaultModels = map[string]string{
	ProviderOpenAI: "gpt-4o",
	ProviderGemini: "gemini-2.5-flash",
}

// Config is the full runtime configuration.
type Config struct {
	LLM      LLMConfig              `yaml:"llm"`
	Renderer process.RendererConfig `yaml:"renderer"`
	Agent    AgentConfig            `yaml:"agent"`
	Store    StoreConfig            `yaml:"store"`
	Lock     LockConfig             `yaml:"lock"`
	MQTT     MQTTConfig             `yaml:"mqtt"`
	HTTP     HTTPConfig             `yaml:"http"`
	Log      LogConfig              `yaml:"log"`
}

// LLMConfig selects the chat model.
type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// AgentConfig tunes the orchestration loop.
type AgentConfig struct {
	MaxIterations int           `yaml:"max_iterations"`
	CallTimeout   time.Duration `yaml:"call_timeout"`
	// InstructionLimit caps instruction size in bytes. Zero defers to
	// UNIBASE_MAX_INSTRUCTION_SIZE or the built-in default.
	InstructionLimit int    `yaml:"instruction_limit"`
	SystemPrompt     string `yaml:"system_prompt"`
}

// StoreConfig selects where projects are persisted.
type StoreConfig struct {
	Backend       string        `yaml:"backend"`
	DSN           string        `yaml:"dsn"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
	Prefix        string        `yaml:"prefix"`

	// EncryptionKey is a base64 AES-256 key sealing conversation history.
	EncryptionKey string   `yaml:"encryption_key"`
	FallbackKeys  []string `yaml:"fallback_keys"`
	// Redact lists regular expressions masked out of stored conversations.
	Redact []string `yaml:"redact"`
}

// LockConfig enables distributed project locks. Requires a Redis address.
type LockConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

// MQTTConfig enables scene event publishing when Broker is set.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr        string `yaml:"addr"`
	Metrics     bool   `yaml:"metrics"`
	MaxBodySize int64  `yaml:"max_body_size"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns a configuration that runs everything in-process.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider:    ProviderOpenAI,
			Temperature: 0.2,
			Timeout:     2 * time.Minute,
		},
		Renderer: process.DefaultRendererConfig(),
		Agent: AgentConfig{
			MaxIterations: 5,
			CallTimeout:   2 * time.Minute,
		},
		Store: StoreConfig{Backend: StoreMemory},
		Lock:  LockConfig{TTL: 15 * time.Minute},
		MQTT: MQTTConfig{
			ClientID:    "unibase",
			TopicPrefix: "unibase",
		},
		HTTP: HTTPConfig{
			Addr:        ":8080",
			Metrics:     true,
			MaxBodySize: 1 << 20,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path (if non-empty and present) over the defaults, then applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return cfg, err
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = DefaultModels[cfg.LLM.Provider]
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("UNIBASE_LLM_PROVIDER", &cfg.LLM.Provider)
	str("UNIBASE_LLM_MODEL", &cfg.LLM.Model)
	str("UNIBASE_LLM_BASE_URL", &cfg.LLM.BaseURL)
	switch cfg.LLM.Provider {
	case ProviderOpenAI:
		str("OPENAI_API_KEY", &cfg.LLM.APIKey)
	case ProviderGemini:
		str("GEMINI_API_KEY", &cfg.LLM.APIKey)
	}
	str("UNIBASE_LLM_API_KEY", &cfg.LLM.APIKey)

	str("UNIBASE_RENDERER_COMMAND", &cfg.Renderer.Command)
	str("UNIBASE_STORE", &cfg.Store.Backend)
	str("UNIBASE_STORE_DSN", &cfg.Store.DSN)
	str("UNIBASE_REDIS_ADDR", &cfg.Store.RedisAddr)
	str("UNIBASE_REDIS_PASSWORD", &cfg.Store.RedisPassword)
	str("UNIBASE_STORE_KEY", &cfg.Store.EncryptionKey)
	str("UNIBASE_MQTT_BROKER", &cfg.MQTT.Broker)
	str("UNIBASE_HTTP_ADDR", &cfg.HTTP.Addr)
	str("UNIBASE_LOG_LEVEL", &cfg.Log.Level)

	if v, ok := lookup("UNIBASE_LOCK"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("UNIBASE_LOCK: %w", err)
		}
		cfg.Lock.Enabled = enabled
	}
	if v, ok := lookup("UNIBASE_MAX_ITERATIONS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("UNIBASE_MAX_ITERATIONS: %w", err)
		}
		cfg.Agent.MaxIterations = n
	}
	return nil
}

// Validate reports configuration combinations that cannot work.
func (c Config) Validate() error {
	var errs []error

	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		errs = append(errs, fmt.Errorf("llm.provider: unknown provider %q", c.LLM.Provider))
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		errs = append(errs, errors.New("llm.model is required"))
	}
	if c.Agent.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("agent.max_iterations must be positive, got %d", c.Agent.MaxIterations))
	}

	switch c.Store.Backend {
	case StoreMemory:
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			errs = append(errs, errors.New("store.redis_addr is required for the redis backend"))
		}
	case StorePostgres, StoreSQLite:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for the %s backend", c.Store.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend))
	}

	if c.Lock.Enabled && c.Store.RedisAddr == "" {
		errs = append(errs, errors.New("lock.enabled requires store.redis_addr"))
	}
	if err := c.Renderer.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
