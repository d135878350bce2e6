package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/antibyte/retrobasic/pkg/auth"
	"github.com/antibyte/retrobasic/pkg/server"
	"github.com/antibyte/retrobasic/pkg/store"
)

func newTestMux(t *testing.T) (*store.Store, http.Handler) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, newMux(db, server.NewHandler(db))
}

// TestStaticRoutes tests that the embedded web client is served and nothing else
func TestStaticRoutes(t *testing.T) {
	_, mux := newTestMux(t)

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/", http.StatusOK, "<title>RetroBASIC</title>"},
		{"/js/terminal.js", http.StatusNotFound, ""},
		{"/css/style.css", http.StatusNotFound, ""},
		{"/missing", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.status {
				t.Fatalf("Expected status %d, got %d", tt.status, rec.Code)
			}
			if tt.body != "" && !strings.Contains(rec.Body.String(), tt.body) {
				t.Errorf("Body lacks %q", tt.body)
			}
		})
	}
}

// TestProgramsRoute tests the program list for logged-in users
func TestProgramsRoute(t *testing.T) {
	db, mux := newTestMux(t)
	if err := db.Save(context.Background(), "alice", "demo", "10 END\n"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	guestToken, err := auth.GenerateGuestToken("guest-session")
	if err != nil {
		t.Fatalf("GenerateGuestToken failed: %v", err)
	}
	userToken, err := auth.GenerateUserToken("user-session", "alice")
	if err != nil {
		t.Fatalf("GenerateUserToken failed: %v", err)
	}

	tests := []struct {
		name   string
		method string
		token  string
		status int
	}{
		{"no token", http.MethodGet, "", http.StatusUnauthorized},
		{"guest", http.MethodGet, guestToken, http.StatusForbidden},
		{"wrong method", http.MethodPost, userToken, http.StatusMethodNotAllowed},
		{"user", http.MethodGet, userToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/programs", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("Expected status %d, got %d", tt.status, rec.Code)
			}
			if tt.status != http.StatusOK {
				return
			}
			var programs []store.ProgramInfo
			if err := json.NewDecoder(rec.Body).Decode(&programs); err != nil {
				t.Fatalf("Decoding the response failed: %v", err)
			}
			if len(programs) != 1 || programs[0].Name != "demo" {
				t.Errorf("Unexpected program list %+v", programs)
			}
		})
	}
}
