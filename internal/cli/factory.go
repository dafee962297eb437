package cli

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/river-berlin/unibase"
	"github.com/river-berlin/unibase/internal/config"
	"github.com/river-berlin/unibase/internal/logging"
	httpAdapter "github.com/river-berlin/unibase/pkg/adapters/http"
	"github.com/river-berlin/unibase/pkg/adapters/gemini"
	"github.com/river-berlin/unibase/pkg/adapters/memory"
	"github.com/river-berlin/unibase/pkg/adapters/mqtt"
	"github.com/river-berlin/unibase/pkg/adapters/openai"
	"github.com/river-berlin/unibase/pkg/adapters/process"
	"github.com/river-berlin/unibase/pkg/adapters/redis"
	"github.com/river-berlin/unibase/pkg/adapters/sql"
	"github.com/river-berlin/unibase/pkg/observability"
	"github.com/river-berlin/unibase/pkg/persistence/middleware"
	"github.com/river-berlin/unibase/pkg/ports"
)

// App is a fully wired engine plus the resources that must be released with it.
type App struct {
	Engine  *unibase.Engine
	Metrics *observability.Metrics
	Streams *httpAdapter.StreamManager
	Logger  *slog.Logger
	Config  config.Config

	closers []func() error
}

// Close releases every backend opened by Build, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// NewLogger builds the process logger. Logs go to stderr so stdout stays
// free for command output and the MCP stdio transport.
func NewLogger(cfg config.LogConfig) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewWithWriter(os.Stderr, level, cfg.JSON), nil
}

// Build wires an Engine from cfg. On error every backend already opened is
// closed again.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (app *App, err error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	app = &App{
		Metrics: observability.NewMetrics(),
		Streams: httpAdapter.NewStreamManager(logger),
		Logger:  logger,
		Config:  cfg,
	}
	defer func() {
		if err != nil {
			_ = app.Close()
			app = nil
		}
	}()

	model, err := newModel(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, err
	}

	engineOpts := []unibase.Option{
		unibase.WithLogger(logger),
		unibase.WithRenderer(process.NewRenderer(
			process.WithConfig(cfg.Renderer),
			process.WithLogger(logger),
		)),
		unibase.WithLifecycleHooks(app.Metrics.Hooks().Merge(observability.LogHooks(logger))),
		unibase.WithMaxIterations(cfg.Agent.MaxIterations),
		unibase.WithPublisher(app.Streams),
	}
	if cfg.Agent.CallTimeout > 0 {
		engineOpts = append(engineOpts, unibase.WithCallTimeout(cfg.Agent.CallTimeout))
	}
	if cfg.Renderer.Timeout > 0 {
		engineOpts = append(engineOpts, unibase.WithRenderTimeout(cfg.Renderer.Timeout))
	}
	if cfg.Agent.InstructionLimit > 0 {
		engineOpts = append(engineOpts, unibase.WithInstructionLimit(cfg.Agent.InstructionLimit))
	}
	if cfg.Agent.SystemPrompt != "" {
		engineOpts = append(engineOpts, unibase.WithSystemPrompt(cfg.Agent.SystemPrompt))
	}

	storeOpts, err := app.storeOptions(ctx, cfg)
	if err != nil {
		return nil, err
	}
	engineOpts = append(engineOpts, storeOpts...)

	if cfg.MQTT.Broker != "" {
		pub, disconnect, err := mqtt.Dial(cfg.MQTT.Broker, cfg.MQTT.ClientID,
			mqtt.WithTopicPrefix(cfg.MQTT.TopicPrefix),
			mqtt.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		app.onClose(func() error { disconnect(); return nil })
		engineOpts = append(engineOpts, unibase.WithPublisher(pub))
		logger.Info("Publishing scene events over MQTT", "broker", cfg.MQTT.Broker, "prefix", cfg.MQTT.TopicPrefix)
	}

	app.Engine, err = unibase.New(model, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return app, nil
}

func newModel(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (ports.ChatModel, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return openai.New(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, openai.WithLogger(logger)), nil
	case config.ProviderGemini:
		return gemini.New(ctx, gemini.Config{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: float32(cfg.Temperature),
		}, gemini.WithLogger(logger))
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// storeOptions opens the project store and, when enabled, the distributed
// locker. Redis-backed pieces share one client.
func (a *App) storeOptions(ctx context.Context, cfg config.Config) ([]unibase.Option, error) {
	var (
		opts   []unibase.Option
		store  ports.ProjectStore
		shared *redis.Store
	)

	redisStore := func() *redis.Store {
		if shared == nil {
			var ropts []redis.Option
			if cfg.Store.TTL > 0 {
				ropts = append(ropts, redis.WithTTL(cfg.Store.TTL))
			}
			if cfg.Store.Prefix != "" {
				ropts = append(ropts, redis.WithPrefix(cfg.Store.Prefix))
			}
			shared = redis.New(cfg.Store.RedisAddr, cfg.Store.RedisPassword, cfg.Store.RedisDB, ropts...)
			a.onClose(shared.Close)
		}
		return shared
	}

	switch cfg.Store.Backend {
	case config.StoreMemory:
		store = memory.NewStore()
	case config.StoreRedis:
		store = redisStore()
	case config.StorePostgres, config.StoreSQLite:
		dialect, err := sql.DialectByName(cfg.Store.Backend)
		if err != nil {
			return nil, err
		}
		st, err := sql.Open(ctx, dialect, cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		a.onClose(st.Close)
		store = st
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	mws, err := storeMiddleware(cfg.Store)
	if err != nil {
		return nil, err
	}
	opts = append(opts, unibase.WithStore(middleware.Chain(store, mws...)))

	if cfg.Lock.Enabled {
		st := redisStore()
		prefix := cfg.Store.Prefix
		if prefix == "" {
			prefix = redis.DefaultPrefix
		}
		opts = append(opts, unibase.WithLocker(redis.NewLocker(st.Client(), prefix), cfg.Lock.TTL))
	}
	return opts, nil
}

// storeMiddleware builds redaction and encryption wrappers. Redaction runs
// first so masked text is what gets sealed.
func storeMiddleware(cfg config.StoreConfig) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(cfg.Redact) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.Redact)
		if err != nil {
			return nil, err
		}
		mws = append(mws, pii)
	}
	if cfg.EncryptionKey == "" {
		return mws, nil
	}

	enc := middleware.EncryptionConfig{}
	key, err := base64.StdEncoding.DecodeString(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("store.encryption_key: %w", err)
	}
	enc.ActiveKey = key
	for i, k := range cfg.FallbackKeys {
		old, err := base64.StdEncoding.DecodeString(k)
		if err != nil {
			return nil, fmt.Errorf("store.fallback_keys[%d]: %w", i, err)
		}
		enc.FallbackKeys = append(enc.FallbackKeys, old)
	}
	sealed, err := middleware.NewEncryptionMiddleware(enc)
	if err != nil {
		return nil, err
	}
	return append(mws, sealed), nil
}
