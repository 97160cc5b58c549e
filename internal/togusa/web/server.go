// Package web exposes the interpretation engine over HTTP.
//
// Endpoints:
//
//	POST /api/chat → ChatRequest → response envelope JSON
//	POST /rpc      → JSON-RPC 2.0 data access (mounted only when this
//	                 instance serves a local store)
//
// The chat endpoint is a thin transport: it namespaces the caller's session
// id, hands the line to the engine, and writes the envelope back verbatim.
// All interpretation outcomes, including errors, travel inside the envelope,
// so the endpoint answers 200 for every well-formed request.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/bdobrica/Togusa/internal/togusa/dispatch"
)

// maxChatBodyBytes caps the inbound chat request body. Chat lines are short;
// anything larger is a misbehaving client.
const maxChatBodyBytes = 64 * 1024 // 64 KiB

// ChatRequest is the body for POST /api/chat.
type ChatRequest struct {
	// SessionID identifies the conversation. Lines with the same session id
	// share context and history and are processed in order.
	SessionID string `json:"session_id"`
	// Text is the raw chat line.
	Text string `json:"text"`
}

// Config wires a web server together.
type Config struct {
	// Addr is the listen address, e.g. ":8084".
	Addr string

	// Engine interprets chat lines.
	Engine *dispatch.Engine

	// DataHandler, when non-nil, is mounted at /rpc so that other instances
	// running in remote data mode can use this one as their store. Nil when
	// this instance itself talks to a remote store; chaining RPC through a
	// client would serve stale errors, not data.
	DataHandler http.Handler
}

// Server is the chat HTTP server.
type Server struct {
	addr   string
	engine *dispatch.Engine
	server *http.Server
}

// New creates a Server listening on cfg.Addr.
func New(cfg Config) *Server {
	s := &Server{
		addr:   cfg.Addr,
		engine: cfg.Engine,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", s.handleChat)
	if cfg.DataHandler != nil {
		mux.Handle("/rpc", cfg.DataHandler)
	}

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Start begins listening. It returns once the listener is bound so callers
// can immediately start sending requests.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("web listen %s: %w", s.addr, err)
	}
	slog.Info("chat API listening", "addr", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("chat API server error", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		s.server.Shutdown(context.Background())
	}()
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.server.Shutdown(ctx)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxChatBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body: "+err.Error())
		return
	}
	var req ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	// Namespace web sessions so a client-chosen id can never collide with a
	// Matrix room id.
	env := s.engine.Process(r.Context(), "web:"+req.SessionID, req.Text)
	writeJSON(w, http.StatusOK, env)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// TestHandler exposes the server's HTTP handler for use in httptest.NewServer.
// This is only intended for tests.
func (s *Server) TestHandler() http.Handler {
	return s.server.Handler
}
