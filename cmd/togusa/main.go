// Togusa is the ops-center chat command interpreter binary.
//
// All configuration is loaded from environment variables. Togusa opens its
// SQLite database (or connects to a remote data server), starts the chat
// HTTP API, and optionally joins Matrix rooms and enables a generative
// interpretation backend.
//
// Common environment variables:
//
//	TOGUSA_DB_PATH              - path to the SQLite database (default "togusa.db")
//	TOGUSA_HTTP_ADDR            - chat API listen address (default ":8084")
//	TOGUSA_HEALTH_ADDR          - health/status listen address (default ":8085")
//	TOGUSA_DATA_MODE            - "local" (default) or "rpc"
//	TOGUSA_RPC_URL              - remote data server URL (rpc mode)
//	TOGUSA_MATRIX_HOMESERVER    - Matrix homeserver URL; empty disables Matrix
//	TOGUSA_MATRIX_USER_ID       - bot Matrix ID (e.g. "@togusa:example.com")
//	TOGUSA_MATRIX_ACCESS_TOKEN  - bot access token
//	TOGUSA_MATRIX_ROOMS         - comma-separated room IDs to join
//	TOGUSA_NLP_PROVIDER         - "openai" or "none" (default)
//	TOGUSA_NLP_API_KEY          - backend API key
//	TOGUSA_NLP_ENDPOINT         - override backend base URL (e.g. Ollama)
//	TOGUSA_NLP_MODEL            - backend chat model (default "gpt-4o-mini")
//	TOGUSA_NLP_TIMEOUT          - per-attempt timeout (e.g. "10s")
//	TOGUSA_NLP_RATE_LIMIT       - backend calls per session per minute
//	TOGUSA_NLP_TOKEN_BUDGET     - backend tokens per session per day
//	TOGUSA_HISTORY_MAX_TURNS    - rolling history window per session
//	TOGUSA_PATTERN_PACKS_DIR    - directory of *.yaml trigger packs
//	TOGUSA_MASTER_KEY           - hex AES-256 key for encrypted config entries
//	TOGUSA_LOG_LEVEL            - "debug", "info", "warn", "error" (default "info")
//	TOGUSA_LOG_FORMAT           - "text" or "json" (default "text")
package main

import (
	"fmt"
	"os"

	"github.com/bdobrica/Togusa/common/crypto"
	"github.com/bdobrica/Togusa/common/environment"
	"github.com/bdobrica/Togusa/common/version"
	"github.com/bdobrica/Togusa/internal/togusa/app"
	"github.com/bdobrica/Togusa/internal/togusa/matrix"
	"github.com/bdobrica/Togusa/internal/togusa/observability"
)

func main() {
	fmt.Printf("Togusa Command Interpreter\n")
	fmt.Printf("Version: %s\n", version.Version)
	fmt.Printf("Commit: %s\n", version.GitCommit)
	fmt.Printf("Build Time: %s\n", version.BuildTime)
	fmt.Println()

	env := environment.Prefixed("TOGUSA_")
	observability.Setup(env.StringOr("LOG_LEVEL", "info"), env.StringOr("LOG_FORMAT", "text"))

	config := loadConfig(env)

	// Load the master encryption key when one is provided. Secret config
	// entries stay unavailable without it.
	if raw := env.StringOr("MASTER_KEY", ""); raw != "" {
		key, err := crypto.ParseMasterKey(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\nGenerate a key with: openssl rand -hex 32\n", err)
			os.Exit(1)
		}
		config.MasterKey = key
	}

	togusa, err := app.New(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize Togusa: %v\n", err)
		os.Exit(1)
	}
	defer togusa.Stop()

	if err := togusa.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running Togusa: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the TOGUSA_* environment surface into an app config.
func loadConfig(env environment.Env) *app.Config {
	return &app.Config{
		DBPath:     env.StringOr("DB_PATH", "togusa.db"),
		HTTPAddr:   env.StringOr("HTTP_ADDR", ":8084"),
		HealthAddr: env.StringOr("HEALTH_ADDR", ":8085"),
		DataMode:   env.StringOr("DATA_MODE", app.DataModeLocal),
		RPCURL:     env.StringOr("RPC_URL", ""),
		Matrix: matrix.Config{
			Homeserver:  env.StringOr("MATRIX_HOMESERVER", ""),
			UserID:      env.StringOr("MATRIX_USER_ID", ""),
			AccessToken: env.StringOr("MATRIX_ACCESS_TOKEN", ""),
			Rooms:       env.StringSliceOr("MATRIX_ROOMS", nil),
		},
		NLPProvider:     env.StringOr("NLP_PROVIDER", app.NLPProviderNone),
		NLPAPIKey:       env.StringOr("NLP_API_KEY", ""),
		NLPEndpoint:     env.StringOr("NLP_ENDPOINT", ""),
		NLPModel:        env.StringOr("NLP_MODEL", ""),
		NLPTimeout:      env.DurationOr("NLP_TIMEOUT", 0),
		NLPRateLimit:    env.IntOr("NLP_RATE_LIMIT", 0),
		NLPTokenBudget:  env.IntOr("NLP_TOKEN_BUDGET", 0),
		HistoryMaxTurns: env.IntOr("HISTORY_MAX_TURNS", 0),
		PatternPacksDir: env.StringOr("PATTERN_PACKS_DIR", ""),
	}
}
