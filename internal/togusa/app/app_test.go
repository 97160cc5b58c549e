package app_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/bdobrica/Togusa/internal/togusa/app"
	togusaconfig "github.com/bdobrica/Togusa/internal/togusa/config"
	"github.com/bdobrica/Togusa/internal/togusa/matrix"
	"github.com/bdobrica/Togusa/internal/togusa/store"
)

func tempDBPath(t *testing.T) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "togusa-*.db")
	if err != nil {
		t.Fatalf("create temp db: %v", err)
	}
	f.Close()
	return f.Name()
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *app.Config
		wantErr bool
	}{
		{"zero config defaults to local", &app.Config{}, false},
		{"explicit local", &app.Config{DataMode: app.DataModeLocal}, false},
		{"unknown data mode", &app.Config{DataMode: "cloud"}, true},
		{"rpc without url", &app.Config{DataMode: app.DataModeRPC}, true},
		{"rpc with url", &app.Config{DataMode: app.DataModeRPC, RPCURL: "http://data:8084"}, false},
		{"matrix without user id", &app.Config{Matrix: matrix.Config{Homeserver: "https://m.example.com"}}, true},
		{"matrix without rooms", &app.Config{Matrix: matrix.Config{
			Homeserver:  "https://m.example.com",
			UserID:      "@togusa:example.com",
			AccessToken: "syt_secret",
		}}, true},
		{"matrix complete", &app.Config{Matrix: matrix.Config{
			Homeserver:  "https://m.example.com",
			UserID:      "@togusa:example.com",
			AccessToken: "syt_secret",
			Rooms:       []string{"!ops:example.com"},
		}}, false},
		{"unknown nlp provider", &app.Config{NLPProvider: "other"}, true},
		{"nlp none", &app.Config{NLPProvider: app.NLPProviderNone}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	if _, err := app.New(&app.Config{DataMode: "weird"}); err == nil {
		t.Fatal("New accepted an invalid data mode")
	}
}

// A local-mode app with no optional subsystems is a working interpreter.
func TestNewLocalModeInterprets(t *testing.T) {
	a, err := app.New(&app.Config{DBPath: tempDBPath(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Stop()

	ctx := context.Background()
	env := a.Engine().Process(ctx, "boot-check", "create agent motoko")
	if len(env.Results) != 1 || env.Results[0].Error != nil {
		t.Fatalf("create agent failed: %+v", env.Results)
	}
	if got, want := env.Results[0].Message, "Agent 'motoko' created successfully"; got != want {
		t.Errorf("message: got %q, want %q", got, want)
	}

	env = a.Engine().Process(ctx, "boot-check", "how many agents are there?")
	if len(env.Results) != 1 || env.Results[0].Error != nil {
		t.Fatalf("count agents failed: %+v", env.Results)
	}
	if got, want := env.Results[0].Message, "There are 1 agents in the system"; got != want {
		t.Errorf("message: got %q, want %q", got, want)
	}
}

func TestNewOpenAIWithoutKeyFails(t *testing.T) {
	_, err := app.New(&app.Config{
		DBPath:      tempDBPath(t),
		NLPProvider: app.NLPProviderOpenAI,
	})
	if err == nil {
		t.Fatal("New accepted an openai provider with no API key")
	}
	if !strings.Contains(err.Error(), "TOGUSA_NLP_API_KEY") {
		t.Errorf("error should name the missing variable, got: %v", err)
	}
}

// An encrypted config entry supplies the backend key without any key in the
// environment surface.
func TestNewUsesStoredAPIKey(t *testing.T) {
	dbPath := tempDBPath(t)
	masterKey := []byte("0123456789abcdef0123456789abcdef")

	st, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	cs := togusaconfig.New(st, masterKey)
	if err := cs.SetSecret(context.Background(), app.NLPAPIKeyConfigKey, "sk-test-stored"); err != nil {
		t.Fatalf("SetSecret: %v", err)
	}
	st.Close()

	a, err := app.New(&app.Config{
		DBPath:      dbPath,
		NLPProvider: app.NLPProviderOpenAI,
		MasterKey:   masterKey,
	})
	if err != nil {
		t.Fatalf("New with stored key: %v", err)
	}
	a.Stop()
}
