// Package server runs interpreter sessions over WebSocket connections.
// Jede Verbindung bekommt ihre eigene Runtime in einer eigenen Goroutine.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/antibyte/retrobasic/pkg/auth"
	"github.com/antibyte/retrobasic/pkg/basic"
	"github.com/antibyte/retrobasic/pkg/configuration"
	"github.com/antibyte/retrobasic/pkg/logger"

	"github.com/gorilla/websocket"
)

// Hilfsfunktionen für WebSocket-Konfigurationswerte, siehe [Network]
func getWriteWait() time.Duration {
	return configuration.GetDuration("Network", "write_wait_timeout", 10*time.Second)
}

func getPongWait() time.Duration {
	return configuration.GetDuration("Network", "pong_timeout", 60*time.Second)
}

func getPingPeriod() time.Duration {
	return (getPongWait() * 9) / 10
}

func getMaxMessageSize() int64 {
	return int64(configuration.GetInt("Network", "max_message_size_kb", 16) * 1024)
}

// Session-Limits aus [Server]
func getMaxSessions() int {
	return configuration.GetInt("Server", "max_sessions", 50)
}

func getIdleTimeout() time.Duration {
	return configuration.GetDuration("Server", "idle_timeout", 30*time.Minute)
}

// getMaxRunTime begrenzt eine einzelne Eingabezeile, 0 heißt unbegrenzt
func getMaxRunTime() time.Duration {
	return configuration.GetDuration("Server", "max_run_time", 0)
}

func getMaxMessagesPerSecond() int {
	return configuration.GetInt("Network", "max_messages_per_second", 50)
}

func getOutputBuffer() int {
	return configuration.GetInt("Server", "output_buffer", 256)
}

// Handler accepts WebSocket connections and owns the live sessions.
type Handler struct {
	store    basic.ProgramStore
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewHandler creates a handler. store may be nil; SAVE and LOAD then report
// that the library is unavailable.
func NewHandler(store basic.ProgramStore) *Handler {
	return &Handler{
		store: store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		sessions: make(map[string]*Session),
	}
}

// HandleWebSocket upgrades an authenticated request and starts a session.
// It expects the claims that auth.RequireSessionToken puts into the context.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if !h.reserve(claims.SessionID) {
		logger.SessionWarn("Rejecting session %s: limit reached or already connected", claims.SessionID)
		http.Error(w, "Too many sessions", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.release(claims.SessionID, nil)
		logger.Error(logger.AreaWebSocket, "WebSocket upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}

	session := newSession(h, conn, claims, h.storeFor(claims))
	h.mu.Lock()
	h.sessions[claims.SessionID] = session
	h.mu.Unlock()

	logger.SessionInfo("Session %s connected from %s (owner %s)", claims.SessionID, r.RemoteAddr, claims.Owner())
	session.start()
}

// storeFor gibt Gästen nur Zugriff auf die Bibliothek, wenn erlaubt
func (h *Handler) storeFor(claims *auth.SessionClaims) basic.ProgramStore {
	if claims.IsGuest() && !configuration.GetBool("Server", "allow_guest_save", false) {
		return nil
	}
	return h.store
}

// reserve belegt einen Platz für die Session-ID
func (h *Handler) reserve(sessionID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.sessions[sessionID]; exists {
		return false
	}
	if len(h.sessions) >= getMaxSessions() {
		return false
	}
	h.sessions[sessionID] = nil
	return true
}

// release gibt den Platz wieder frei, aber nur für die eigene Session
func (h *Handler) release(sessionID string, s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if current, exists := h.sessions[sessionID]; exists && current == s {
		delete(h.sessions, sessionID)
	}
}

// SessionCount returns the number of connected sessions.
func (h *Handler) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Shutdown closes every session and waits until their goroutines finished or
// ctx expires.
func (h *Handler) Shutdown(ctx context.Context) {
	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		if s != nil {
			sessions = append(sessions, s)
		}
	}
	h.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
	for _, s := range sessions {
		select {
		case <-s.done:
		case <-ctx.Done():
			return
		}
	}
}
