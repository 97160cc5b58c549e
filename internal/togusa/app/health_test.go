package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bdobrica/Togusa/internal/togusa/app"
)

// fakeStatus backs the health server without a database.
type fakeStatus struct {
	agents int
	err    error
}

func (f *fakeStatus) CountAgents(ctx context.Context) (int, error) {
	return f.agents, f.err
}

type fakeSessions struct{ n int }

func (f *fakeSessions) Len() int { return f.n }

func TestHealthEndpoint(t *testing.T) {
	hs := app.NewHealthServer(":0", &fakeStatus{agents: 2})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	hs.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health: got status %d, want 200", rec.Code)
	}
	var resp struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode health response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status: got %q, want %q", resp.Status, "ok")
	}
	if resp.Version == "" {
		t.Error("version missing from health response")
	}
}

func TestStatusEndpoint(t *testing.T) {
	hs := app.NewHealthServer(":0", &fakeStatus{agents: 5})
	hs.SetSessionCounter(&fakeSessions{n: 3})
	hs.SetBackendName("openai")

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	hs.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /status: got status %d, want 200", rec.Code)
	}
	var resp struct {
		Status         string  `json:"status"`
		AgentCount     int     `json:"agent_count"`
		ActiveSessions int     `json:"active_sessions"`
		Backend        string  `json:"backend"`
		UptimeSecs     float64 `json:"uptime_seconds"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode status response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status: got %q, want %q", resp.Status, "ok")
	}
	if resp.AgentCount != 5 {
		t.Errorf("agent_count: got %d, want 5", resp.AgentCount)
	}
	if resp.ActiveSessions != 3 {
		t.Errorf("active_sessions: got %d, want 3", resp.ActiveSessions)
	}
	if resp.Backend != "openai" {
		t.Errorf("backend: got %q, want %q", resp.Backend, "openai")
	}
	if resp.UptimeSecs < 0 {
		t.Errorf("uptime_seconds is negative: %f", resp.UptimeSecs)
	}
}

// A failing data layer must not take /status down with it.
func TestStatusEndpointToleratesStoreError(t *testing.T) {
	hs := app.NewHealthServer(":0", &fakeStatus{err: errors.New("db gone")})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	hs.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /status: got status %d, want 200", rec.Code)
	}
	var resp struct {
		AgentCount int    `json:"agent_count"`
		Backend    string `json:"backend"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode status response: %v", err)
	}
	if resp.AgentCount != 0 {
		t.Errorf("agent_count: got %d, want 0 on store error", resp.AgentCount)
	}
	if resp.Backend != "disabled" {
		t.Errorf("backend: got %q, want %q", resp.Backend, "disabled")
	}
}
