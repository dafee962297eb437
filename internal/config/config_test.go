package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "unibase.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load("", env(nil))
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 5, cfg.Agent.MaxIterations)
	assert.Equal(t, StoreMemory, cfg.Store.Backend)
	assert.Equal(t, "openscad", cfg.Renderer.Command)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := load(filepath.Join(t.TempDir(), "absent.yaml"), env(nil))
	require.NoError(t, err)
	assert.Equal(t, Default().Agent, cfg.Agent)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
llm:
  provider: gemini
  temperature: 0.5
agent:
  max_iterations: 3
  call_timeout: 30s
store:
  backend: sqlite
  dsn: file:unibase.db
renderer:
  command: /opt/openscad
  args: ["-o", "{output}", "{input}"]
  timeout: 2m
log:
  level: debug
  json: true
`)
	cfg, err := load(path, env(nil))
	require.NoError(t, err)

	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, DefaultModels[ProviderGemini], cfg.LLM.Model)
	assert.InDelta(t, 0.5, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 3, cfg.Agent.MaxIterations)
	assert.Equal(t, 30*time.Second, cfg.Agent.CallTimeout)
	assert.Equal(t, StoreSQLite, cfg.Store.Backend)
	assert.Equal(t, "/opt/openscad", cfg.Renderer.Command)
	assert.Equal(t, 2*time.Minute, cfg.Renderer.Timeout)
	assert.True(t, cfg.Log.JSON)
	// Untouched sections keep their defaults.
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "llm:\n  provider: openai\n  api_key: from-file\n")
	cfg, err := load(path, env(map[string]string{
		"OPENAI_API_KEY":         "from-env",
		"UNIBASE_STORE":          "redis",
		"UNIBASE_REDIS_ADDR":     "localhost:6379",
		"UNIBASE_LOCK":           "true",
		"UNIBASE_MAX_ITERATIONS": "2",
		"UNIBASE_HTTP_ADDR":      ":9090",
		"GEMINI_API_KEY":         "ignored",
	}))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.LLM.APIKey)
	assert.Equal(t, StoreRedis, cfg.Store.Backend)
	assert.True(t, cfg.Lock.Enabled)
	assert.Equal(t, 2, cfg.Agent.MaxIterations)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
}

func TestLoad_ProviderSpecificKey(t *testing.T) {
	cfg, err := load("", env(map[string]string{
		"UNIBASE_LLM_PROVIDER": "gemini",
		"OPENAI_API_KEY":       "openai-key",
		"GEMINI_API_KEY":       "gemini-key",
	}))
	require.NoError(t, err)
	assert.Equal(t, "gemini-key", cfg.LLM.APIKey)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
		want string
	}{
		{"bad yaml", "llm: [", nil, "parse config"},
		{"unknown provider", "", map[string]string{"UNIBASE_LLM_PROVIDER": "llama"}, "unknown provider"},
		{"unknown store", "", map[string]string{"UNIBASE_STORE": "s3"}, "unknown backend"},
		{"redis without addr", "", map[string]string{"UNIBASE_STORE": "redis"}, "redis_addr"},
		{"postgres without dsn", "", map[string]string{"UNIBASE_STORE": "postgres"}, "store.dsn"},
		{"lock without redis", "", map[string]string{"UNIBASE_LOCK": "1"}, "lock.enabled"},
		{"bad lock flag", "", map[string]string{"UNIBASE_LOCK": "maybe"}, "UNIBASE_LOCK"},
		{"bad iterations", "", map[string]string{"UNIBASE_MAX_ITERATIONS": "many"}, "UNIBASE_MAX_ITERATIONS"},
		{"zero iterations", "agent:\n  max_iterations: 0\n", nil, "max_iterations"},
		{"renderer without placeholders", "renderer:\n  args: [\"x\"]\n", nil, "{input}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := ""
			if tt.file != "" {
				path = writeFile(t, tt.file)
			}
			_, err := load(path, env(tt.env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
