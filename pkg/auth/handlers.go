package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/antibyte/retrobasic/pkg/configuration"
	"github.com/antibyte/retrobasic/pkg/logger"
)

// Accounts is the user table the session handler checks credentials against.
type Accounts interface {
	Authenticate(ctx context.Context, username, password string) error
	CreateUser(ctx context.Context, username, password string) error
	UserExists(ctx context.Context, username string) (bool, error)
}

// Handler serves the session endpoints.
type Handler struct {
	accounts Accounts
}

// NewHandler creates the session handler. accounts may be nil, then only
// guest sessions are available.
func NewHandler(accounts Accounts) *Handler {
	return &Handler{accounts: accounts}
}

// SessionRequest is the optional body of POST /api/session.
type SessionRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SessionResponse is returned by the session and validation endpoints.
type SessionResponse struct {
	Success   bool   `json:"success"`
	Token     string `json:"token,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Username  string `json:"username,omitempty"`
	Message   string `json:"message,omitempty"`
}

// HandleSession issues a session token. An empty body starts a guest session;
// credentials log in, registering unknown users when allowed.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondWithError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SessionRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		logger.AuthWarn("Invalid JSON in session request: %v", err)
		respondWithError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	sessionID := generateSessionID()
	if req.Username == "" {
		h.startGuest(w, sessionID)
		return
	}
	if h.accounts == nil {
		respondWithError(w, "Accounts not available", http.StatusServiceUnavailable)
		return
	}

	ctx := r.Context()
	exists, err := h.accounts.UserExists(ctx, req.Username)
	if err != nil {
		logger.AuthError("User lookup failed for %s: %v", req.Username, err)
		respondWithError(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if !exists {
		if !configuration.GetBool("Authentication", "allow_registration", true) {
			respondWithError(w, "Invalid username or password", http.StatusUnauthorized)
			return
		}
		if err := h.accounts.CreateUser(ctx, req.Username, req.Password); err != nil {
			logger.AuthWarn("Registration of %s failed: %v", req.Username, err)
			respondWithError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if err := h.accounts.Authenticate(ctx, req.Username, req.Password); err != nil {
		respondWithError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	token, err := GenerateUserToken(sessionID, req.Username)
	if err != nil {
		logger.AuthError("Failed to generate token for %s: %v", req.Username, err)
		respondWithError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}
	logger.AuthInfo("Session %s started for %s", sessionID, req.Username)
	respondWithToken(w, token, sessionID, req.Username)
}

func (h *Handler) startGuest(w http.ResponseWriter, sessionID string) {
	if !configuration.GetBool("Authentication", "enable_guest_access", true) {
		respondWithError(w, "Guest access disabled", http.StatusForbidden)
		return
	}
	token, err := GenerateGuestToken(sessionID)
	if err != nil {
		logger.AuthError("Failed to generate guest token: %v", err)
		respondWithError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}
	logger.AuthInfo("Guest session %s started", sessionID)
	respondWithToken(w, token, sessionID, "")
}

// HandleTokenValidation reports whether the request carries a valid token.
func HandleTokenValidation(w http.ResponseWriter, r *http.Request) {
	tokenString, err := ExtractTokenFromRequest(r)
	if err != nil {
		respondWithError(w, "Token missing", http.StatusUnauthorized)
		return
	}
	claims, err := ValidateToken(tokenString)
	if err != nil {
		respondWithError(w, "Invalid token", http.StatusUnauthorized)
		return
	}
	respondJSON(w, http.StatusOK, SessionResponse{
		Success:   true,
		SessionID: claims.SessionID,
		Username:  claims.Username,
	})
}

// HandleLogout clears the session cookie.
func HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	respondJSON(w, http.StatusOK, SessionResponse{Success: true, Message: "Logged out"})
}

func respondWithToken(w http.ResponseWriter, token, sessionID, username string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(getTokenLifetime().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	respondJSON(w, http.StatusOK, SessionResponse{
		Success:   true,
		Token:     token,
		SessionID: sessionID,
		Username:  username,
	})
}

func respondWithError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, SessionResponse{Success: false, Message: message})
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.AuthError("Failed to encode response: %v", err)
	}
}
