package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/antibyte/retrobasic/pkg/configuration"
	"github.com/antibyte/retrobasic/pkg/logger"

	"golang.org/x/crypto/bcrypt"
)

// Error definitions for account handling
var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrWeakPassword       = errors.New("password too short")
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// ValidateUsername checks length and characters against [Authentication].
func ValidateUsername(username string) error {
	minLen := configuration.GetInt("Authentication", "min_username_length", 3)
	maxLen := configuration.GetInt("Authentication", "max_username_length", 20)
	if len(username) < minLen || len(username) > maxLen || !usernamePattern.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

// CreateUser registers a new account with a bcrypt hashed password.
func (s *Store) CreateUser(ctx context.Context, username, password string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if len(password) < configuration.GetInt("Authentication", "min_password_length", 6) {
		return ErrWeakPassword
	}

	exists, err := s.UserExists(ctx, username)
	if err != nil {
		return err
	}
	if exists {
		return ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (username, password, created_at) VALUES (?, ?, ?)`,
		username, string(hash), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("create user %q: %w", username, err)
	}
	logger.AuthInfo("user %s registered", username)
	return nil
}

// UserExists reports whether username is registered.
func (s *Store) UserExists(ctx context.Context, username string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE username = ?`, username).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup user %q: %w", username, err)
	}
	return n > 0, nil
}

// Authenticate checks a password and records the login time.
func (s *Store) Authenticate(ctx context.Context, username, password string) error {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT password FROM users WHERE username = ?`, username).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("lookup user %q: %w", username, err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		logger.SecurityWarn("failed login for %s", username)
		return ErrInvalidCredentials
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_login = ? WHERE username = ?`, time.Now().Unix(), username); err != nil {
		logger.Warn(logger.AreaDatabase, "could not record login for %s: %v", username, err)
	}
	return nil
}
