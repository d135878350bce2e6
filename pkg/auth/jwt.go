package auth

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/antibyte/retrobasic/pkg/configuration"
	"github.com/antibyte/retrobasic/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultJWTSecret     = "fallback_secret_change_in_production"
	defaultTokenLifetime = 24 * time.Hour

	tokenIssuer  = "retrobasic"
	guestSubject = "guest"

	// SessionCookieName is the cookie that carries the session token.
	SessionCookieName = "session_token"
)

// ErrNoToken is returned when a request carries no session token.
var ErrNoToken = errors.New("no token found in request")

// getJWTSecret reads JWT_SECRET_KEY first, then [JWT] secret_key.
func getJWTSecret() string {
	if envSecret := os.Getenv("JWT_SECRET_KEY"); envSecret != "" {
		return envSecret
	}
	secret := configuration.GetString("JWT", "secret_key", "")
	if secret == "" || secret == defaultJWTSecret {
		logger.SecurityWarn("Using fallback JWT secret - set JWT_SECRET_KEY for production!")
		return defaultJWTSecret
	}
	return secret
}

func getTokenLifetime() time.Duration {
	return configuration.GetDuration("JWT", "token_lifetime", defaultTokenLifetime)
}

// SessionClaims identify one interpreter session. Guests have no username
// and cannot use the program library unless the server allows it.
type SessionClaims struct {
	SessionID string `json:"sid"`
	Username  string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// IsGuest reports whether the token belongs to a guest session.
func (c *SessionClaims) IsGuest() bool {
	return c.Username == ""
}

// Owner is the program library namespace of the session.
func (c *SessionClaims) Owner() string {
	if c.IsGuest() {
		return guestSubject + ":" + c.SessionID
	}
	return c.Username
}

func generateSessionID() string {
	return uuid.New().String()
}

// GenerateGuestToken signs a token for an anonymous session.
func GenerateGuestToken(sessionID string) (string, error) {
	return signToken(sessionID, "")
}

// GenerateUserToken signs a token for an authenticated user.
func GenerateUserToken(sessionID, username string) (string, error) {
	if username == "" {
		return "", fmt.Errorf("username required")
	}
	return signToken(sessionID, username)
}

func signToken(sessionID, username string) (string, error) {
	now := time.Now()
	subject := username
	if subject == "" {
		subject = guestSubject
	}

	claims := SessionClaims{
		SessionID: sessionID,
		Username:  username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(getTokenLifetime())),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   subject,
			ID:        sessionID,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(getJWTSecret()))
	if err != nil {
		return "", fmt.Errorf("token could not be signed: %w", err)
	}
	logger.Debug(logger.AreaAuth, "token issued for session %s (subject %s)", sessionID, subject)
	return signed, nil
}

// ValidateToken checks signature, algorithm, issuer and expiry.
func ValidateToken(tokenString string) (*SessionClaims, error) {
	secret := getJWTSecret()
	token, err := jwt.ParseWithClaims(
		tokenString,
		&SessionClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing algorithm: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("token parsing failed: %w", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.SessionID == "" {
		return nil, fmt.Errorf("token has no session id")
	}
	return claims, nil
}

// ExtractTokenFromRequest reads the token from the Authorization header
// (Bearer), the session cookie or the "token" query parameter, in that order.
// Browsers cannot set headers on WebSocket upgrades, hence the query form.
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" && parts[1] != "" {
			return parts[1], nil
		}
		return "", fmt.Errorf("invalid authorization header format")
	}

	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}
	return "", ErrNoToken
}

// RequireSessionToken rejects requests without a valid token and stores the
// claims in the request context.
func RequireSessionToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next(w, r)
			return
		}

		tokenString, err := ExtractTokenFromRequest(r)
		if err != nil {
			logger.AuthWarn("No token in request from %s: %v", r.RemoteAddr, err)
			http.Error(w, "Unauthorized: token missing", http.StatusUnauthorized)
			return
		}

		claims, err := ValidateToken(tokenString)
		if err != nil {
			logger.AuthWarn("Invalid token from %s: %v", r.RemoteAddr, err)
			http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
			return
		}

		next(w, r.WithContext(AddClaimsToContext(r.Context(), claims)))
	}
}
