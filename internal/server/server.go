// Package server exposes the chat command endpoint over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/wordflux/wordflux/internal/idempotency"
	"github.com/wordflux/wordflux/internal/orchestrator"
)

// Server wraps the orchestrator with the HTTP surface: POST /chat plus
// health endpoints. Idempotent replay is driven by the Idempotency-Key
// request header; the X-Idempotency response header reports HIT, MISS,
// or OFF.
type Server struct {
	orch       *orchestrator.Orchestrator
	cache      *idempotency.Cache
	httpServer *http.Server
	listener   net.Listener
	addr       string
	mu         sync.RWMutex
}

func New(orch *orchestrator.Orchestrator, addr string) *Server {
	return &Server{
		orch:  orch,
		cache: idempotency.NewCache(),
		addr:  addr,
	}
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/api/chat", s.handleChat)

	s.httpServer = &http.Server{
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
	}()

	return s.httpServer.Serve(listener)
}

// Addr returns the listen address once the server is started.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Handler returns the chat handler for tests and embedding.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handleChat)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req orchestrator.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"ok":      false,
			"error":   "invalid JSON body",
			"message": "Please provide a JSON body with a message field",
		}, "")
		return
	}
	req.Requester = requesterKey(r)
	req.AcceptLanguage = r.Header.Get("Accept-Language")

	key := r.Header.Get("Idempotency-Key")
	if key == "" {
		s.respond(w, r, req, "", "OFF")
		return
	}
	if payload, ok := s.cache.Recall(key); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Idempotency", "HIT")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload)
		return
	}
	s.respond(w, r, req, key, "MISS")
}

// respond runs the request and, when key is set and the run succeeded,
// caches the body for replay.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, req orchestrator.Request, key, idemStatus string) {
	resp := s.orch.Process(r.Context(), req)
	body, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if key != "" && resp.OK {
		s.cache.Remember(key, body)
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Idempotency", idemStatus)
	w.WriteHeader(resp.Status)
	_, _ = w.Write(body)
}

func writeJSON(w http.ResponseWriter, status int, payload any, idemStatus string) {
	w.Header().Set("Content-Type", "application/json")
	if idemStatus != "" {
		w.Header().Set("X-Idempotency", idemStatus)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// requesterKey derives a best-effort client identity. Not a security
// boundary.
func requesterKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return "unknown"
}
