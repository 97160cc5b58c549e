// Package app wires the Togusa subsystems together: the data layer (embedded
// SQLite store or remote data server), the interpretation engine, the chat
// HTTP API, the optional Matrix client, and the optional generative backend.
//
// Every subsystem except the engine and the data layer is optional. A minimal
// deployment is a local database plus the HTTP chat endpoint; Matrix, the
// generative backend, and the health server are added purely through
// configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"maunium.net/go/mautrix/event"

	"github.com/bdobrica/Togusa/common/retry"
	togusaconfig "github.com/bdobrica/Togusa/internal/togusa/config"
	"github.com/bdobrica/Togusa/internal/togusa/dispatch"
	"github.com/bdobrica/Togusa/internal/togusa/intent"
	"github.com/bdobrica/Togusa/internal/togusa/matrix"
	"github.com/bdobrica/Togusa/internal/togusa/nlp"
	"github.com/bdobrica/Togusa/internal/togusa/rpc"
	"github.com/bdobrica/Togusa/internal/togusa/store"
	"github.com/bdobrica/Togusa/internal/togusa/web"
)

const (
	// DataModeLocal runs actions against an embedded SQLite store and mounts
	// the /rpc endpoint so other Togusa instances can use this one as their
	// data server.
	DataModeLocal = "local"
	// DataModeRPC runs actions against a remote Togusa data server.
	DataModeRPC = "rpc"

	// NLPProviderOpenAI enables the OpenAI-compatible generative backend.
	NLPProviderOpenAI = "openai"
	// NLPProviderNone disables the generative backend; every line is
	// interpreted by the pattern library alone.
	NLPProviderNone = "none"

	// NLPAPIKeyConfigKey is the config-store entry that overrides the
	// environment-provided backend API key. It is stored encrypted, so it
	// requires a master key.
	NLPAPIKeyConfigKey = "togusa.nlp-api-key"
)

// rpcProbeTimeout bounds the startup reachability probe against a remote
// data server, including retries.
const rpcProbeTimeout = 30 * time.Second

// Config holds the Togusa application configuration.
type Config struct {
	// DBPath is the SQLite database file, used in local data mode.
	// Defaults to "togusa.db" when empty.
	DBPath string

	// HTTPAddr is the chat API listen address (e.g. ":8084"). When empty the
	// HTTP surface is disabled and only Matrix (if configured) accepts input.
	HTTPAddr string

	// HealthAddr is the health/status listen address (e.g. ":8085"). When
	// empty the health server is disabled.
	HealthAddr string

	// DataMode selects where actions execute: DataModeLocal (the default)
	// or DataModeRPC.
	DataMode string

	// RPCURL is the base URL of the remote data server, e.g.
	// "http://togusa-data:8084". Required in rpc mode.
	RPCURL string

	// Matrix configures the optional Matrix client. An empty Homeserver
	// disables Matrix entirely; when set, UserID, AccessToken, and at least
	// one room are required.
	Matrix matrix.Config

	// NLPProvider selects the generative backend: NLPProviderOpenAI or
	// NLPProviderNone. Empty means none.
	NLPProvider string

	// NLPAPIKey is the backend API key read from the environment. An
	// encrypted config-store entry under NLPAPIKeyConfigKey takes precedence
	// when present.
	NLPAPIKey string

	// NLPEndpoint overrides the backend API base URL (e.g. an Ollama or
	// Azure endpoint). Empty means the public OpenAI endpoint.
	NLPEndpoint string

	// NLPModel is the chat model used for interpretation.
	// Defaults to "gpt-4o-mini" when empty.
	NLPModel string

	// NLPTimeout bounds one backend attempt, both the HTTP request and the
	// engine's wait for it. Zero means the package defaults.
	NLPTimeout time.Duration

	// NLPRateLimit is the maximum number of backend attempts per session per
	// minute. Zero or negative means nlp.DefaultRateLimit.
	NLPRateLimit int

	// NLPTokenBudget is the maximum number of backend tokens per session per
	// UTC day. Zero or negative means nlp.DefaultTokenBudget.
	NLPTokenBudget int

	// HistoryMaxTurns bounds each session's rolling history window sent to
	// the backend. Zero means the session package default.
	HistoryMaxTurns int

	// PatternPacksDir is scanned at startup for *.yaml trigger packs that
	// extend the pattern library with extra wordings. Empty disables packs;
	// a missing directory is not an error.
	PatternPacksDir string

	// MasterKey is the 32-byte AES key protecting encrypted config entries.
	// Nil disables secret config values; plain entries keep working.
	MasterKey []byte
}

// Validate checks the configuration for contradictions before any subsystem
// is built. Error messages name the environment variables operators set.
func (c *Config) Validate() error {
	switch c.DataMode {
	case "", DataModeLocal, DataModeRPC:
	default:
		return fmt.Errorf("TOGUSA_DATA_MODE must be %q or %q, got %q", DataModeLocal, DataModeRPC, c.DataMode)
	}
	if c.dataMode() == DataModeRPC && c.RPCURL == "" {
		return errors.New("TOGUSA_RPC_URL is required when TOGUSA_DATA_MODE=rpc")
	}

	if c.Matrix.Homeserver != "" {
		if c.Matrix.UserID == "" {
			return errors.New("TOGUSA_MATRIX_USER_ID is required when a homeserver is configured")
		}
		if c.Matrix.AccessToken == "" {
			return errors.New("TOGUSA_MATRIX_ACCESS_TOKEN is required when a homeserver is configured")
		}
		if len(c.Matrix.Rooms) == 0 {
			return errors.New("TOGUSA_MATRIX_ROOMS is required when a homeserver is configured")
		}
	}

	switch c.NLPProvider {
	case "", NLPProviderNone, NLPProviderOpenAI:
	default:
		return fmt.Errorf("TOGUSA_NLP_PROVIDER must be %q or %q, got %q", NLPProviderOpenAI, NLPProviderNone, c.NLPProvider)
	}

	return nil
}

func (c *Config) dataMode() string {
	if c.DataMode == "" {
		return DataModeLocal
	}
	return c.DataMode
}

// App is the assembled Togusa application.
type App struct {
	config *Config

	store       *store.Store // nil in rpc mode
	data        dispatch.DataAccess
	configStore togusaconfig.Store // nil in rpc mode
	engine      *dispatch.Engine
	webServer   *web.Server
	matrix      *matrix.Client
	health      *HealthServer
}

// New builds the application from config. It opens the database (or probes
// the remote data server), constructs the engine, and prepares the configured
// transports without starting any of them; Run does that.
func New(config *Config) (*App, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	app := &App{config: config}

	// Data layer: embedded store or remote server.
	switch config.dataMode() {
	case DataModeLocal:
		dbPath := config.DBPath
		if dbPath == "" {
			dbPath = "togusa.db"
		}
		slog.Info("opening database", "path", dbPath)
		st, err := store.New(dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		app.store = st
		app.data = st
		app.configStore = togusaconfig.New(st, config.MasterKey)

	case DataModeRPC:
		slog.Info("using remote data server", "url", config.RPCURL)
		client := rpc.NewClient(config.RPCURL)
		probeCtx, cancel := context.WithTimeout(context.Background(), rpcProbeTimeout)
		err := retry.Do(probeCtx, retry.DefaultConfig, func() error {
			return client.Ping(probeCtx)
		})
		cancel()
		if err != nil {
			return nil, fmt.Errorf("remote data server unreachable: %w", err)
		}
		app.data = client
	}

	// Generative backend. Absence is a fully supported configuration: the
	// engine falls back to pattern matching for every line.
	var provider nlp.Provider
	if config.NLPProvider == NLPProviderOpenAI {
		apiKey, err := app.nlpAPIKey(context.Background())
		if err != nil {
			app.closeStore()
			return nil, err
		}
		provider = nlp.New(nlp.Config{
			APIKey:  apiKey,
			BaseURL: config.NLPEndpoint,
			Model:   config.NLPModel,
			Timeout: config.NLPTimeout,
		})
		slog.Info("generative backend configured", "provider", config.NLPProvider, "model", config.NLPModel)
	} else {
		slog.Info("generative backend disabled; pattern matching only")
	}

	var limiter *nlp.RateLimiter
	var budget *nlp.TokenBudget
	if provider != nil {
		limiter = nlp.NewRateLimiter(config.NLPRateLimit, time.Minute)
		budget = nlp.NewTokenBudget(config.NLPTokenBudget)
	}

	// Pattern library, optionally extended with trigger packs.
	lib := intent.NewLibrary()
	if config.PatternPacksDir != "" {
		packs, err := intent.LoadPacks(config.PatternPacksDir)
		if err != nil {
			app.closeStore()
			return nil, fmt.Errorf("failed to load pattern packs: %w", err)
		}
		if len(packs) > 0 {
			lib = lib.WithPacks(packs...)
			slog.Info("pattern packs loaded", "dir", config.PatternPacksDir, "packs", len(packs))
		}
	}

	// Audit trail only exists where the database does.
	var audit dispatch.AuditSink
	if app.store != nil {
		audit = app.store
	}

	app.engine = dispatch.NewEngine(dispatch.Config{
		Data:           app.data,
		Library:        lib,
		Backend:        provider,
		BackendTimeout: config.NLPTimeout,
		RateLimiter:    limiter,
		TokenBudget:    budget,
		Audit:          audit,
		MaxTurns:       config.HistoryMaxTurns,
	})

	// Chat HTTP API. /rpc is mounted only when the data lives here, so a
	// local-mode instance doubles as the data server for rpc-mode ones.
	if config.HTTPAddr != "" {
		var dataHandler http.Handler
		if app.store != nil {
			dataHandler = rpc.NewServer(app.store)
		}
		app.webServer = web.New(web.Config{
			Addr:        config.HTTPAddr,
			Engine:      app.engine,
			DataHandler: dataHandler,
		})
	}

	// Matrix client. The DB is injected so the sync token survives restarts.
	if config.Matrix.Homeserver != "" {
		matrixCfg := config.Matrix
		if app.store != nil {
			matrixCfg.DB = app.store.DB()
		}
		slog.Info("connecting to Matrix", "homeserver", matrixCfg.Homeserver, "rooms", len(matrixCfg.Rooms))
		mx, err := matrix.New(&matrixCfg)
		if err != nil {
			app.closeStore()
			return nil, fmt.Errorf("failed to initialize Matrix client: %w", err)
		}
		app.matrix = mx
	}

	if config.HealthAddr != "" {
		hs := NewHealthServer(config.HealthAddr, app.data)
		hs.SetSessionCounter(app.engine.Sessions())
		if provider != nil {
			hs.SetBackendName(config.NLPProvider)
		}
		app.health = hs
	}

	return app, nil
}

// nlpAPIKey resolves the backend API key: the encrypted config-store entry
// wins, the environment-provided value is the fallback.
func (a *App) nlpAPIKey(ctx context.Context) (string, error) {
	if a.configStore != nil {
		v, err := a.configStore.Get(ctx, NLPAPIKeyConfigKey)
		switch {
		case err == nil && v != "":
			slog.Info("using backend API key from config store", "key", NLPAPIKeyConfigKey)
			return v, nil
		case err != nil && !errors.Is(err, togusaconfig.ErrNotFound):
			return "", fmt.Errorf("failed to read %s: %w", NLPAPIKeyConfigKey, err)
		}
	}
	if a.config.NLPAPIKey != "" {
		return a.config.NLPAPIKey, nil
	}
	return "", fmt.Errorf("TOGUSA_NLP_PROVIDER=%s requires an API key: set TOGUSA_NLP_API_KEY or store the %s secret", a.config.NLPProvider, NLPAPIKeyConfigKey)
}

// closeStore releases the database during failed construction.
func (a *App) closeStore() {
	if a.store != nil {
		a.store.Close()
	}
}

// Engine exposes the interpretation engine, e.g. for driving Togusa through
// a transport this package does not know about.
func (a *App) Engine() *dispatch.Engine {
	return a.engine
}

// ConfigStore exposes the runtime configuration table. Nil in rpc mode.
func (a *App) ConfigStore() togusaconfig.Store {
	return a.configStore
}

// Run starts the configured transports and blocks until an interrupt or
// SIGTERM arrives.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.health != nil {
		if err := a.health.Start(ctx); err != nil {
			slog.Warn("health server failed to start; continuing without it", "err", err)
		}
	}

	if a.webServer != nil {
		if err := a.webServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start chat API: %w", err)
		}
	}

	if a.matrix != nil {
		slog.Info("starting Matrix sync")
		if err := a.matrix.Start(ctx, a.handleMessage); err != nil {
			return fmt.Errorf("failed to start Matrix client: %w", err)
		}

		notice := "✅ Togusa is online. Say `help` to see what I understand."
		for _, roomID := range a.config.Matrix.Rooms {
			_, html := matrix.RenderText(notice)
			if err := a.matrix.SendFormattedMessage(roomID, html, notice); err != nil {
				slog.Warn("startup notice failed", "room", roomID, "err", err)
			}
		}
	}

	slog.Info("Togusa is running; press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down")
	return nil
}

// Stop shuts the transports down in reverse start order and closes the
// database.
func (a *App) Stop() {
	if a.matrix != nil {
		slog.Info("stopping Matrix client")
		a.matrix.Stop()
	}

	if a.webServer != nil {
		slog.Info("stopping chat API")
		a.webServer.Stop()
	}

	if a.health != nil {
		slog.Info("stopping health server")
		a.health.Stop()
	}

	if a.store != nil {
		slog.Info("closing database")
		a.store.Close()
	}
}

// handleMessage feeds one Matrix text message through the engine and sends
// the rendered envelope back to the room. The room ID is the session ID:
// each room carries its own context, history, and backend toggle.
func (a *App) handleMessage(ctx context.Context, evt *event.Event) {
	msg := evt.Content.AsMessage()
	if msg == nil {
		return
	}

	env := a.engine.Process(ctx, evt.RoomID.String(), msg.Body)

	plain, html := matrix.Render(env)
	if err := a.matrix.SendFormattedMessage(evt.RoomID.String(), html, plain); err != nil {
		slog.Error("failed to send response", "room", evt.RoomID.String(), "err", err)
	}
}
