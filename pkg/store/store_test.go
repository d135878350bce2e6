package store

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/antibyte/retrobasic/pkg/basic"

	"golang.org/x/crypto/bcrypt"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	s.hashCost = bcrypt.MinCost
	t.Cleanup(func() { s.Close() })
	return s
}

// TestProgramLibrary tests saving, loading, listing and deleting programs
func TestProgramLibrary(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "alice", "hello", "10 PRINT \"HI\"\n"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Save(ctx, "alice", "count", "10 FOR I = 1 TO 3\n"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Save(ctx, "bob", "hello", "10 END\n"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Saving again replaces the source.
	if err := s.Save(ctx, "alice", "hello", "10 PRINT \"BYE\"\n"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	source, err := s.Load(ctx, "alice", "hello")
	if err != nil || source != "10 PRINT \"BYE\"\n" {
		t.Errorf("Unexpected source %q (%v)", source, err)
	}

	names, err := s.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"count", "hello"}) {
		t.Errorf("Unexpected names %v", names)
	}

	infos, err := s.Programs(ctx, "bob")
	if err != nil || len(infos) != 1 || infos[0].ID == "" || infos[0].UpdatedAt.IsZero() {
		t.Errorf("Unexpected program info %+v (%v)", infos, err)
	}

	if _, err := s.Load(ctx, "alice", "missing"); !errors.Is(err, basic.ErrProgramNotFound) {
		t.Errorf("Expected ErrProgramNotFound, got %v", err)
	}
	if err := s.Save(ctx, "alice", "bad name", ""); !errors.Is(err, basic.ErrInvalidName) {
		t.Errorf("Expected ErrInvalidName, got %v", err)
	}

	if err := s.Delete(ctx, "alice", "count"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete(ctx, "alice", "count"); !errors.Is(err, basic.ErrProgramNotFound) {
		t.Errorf("Second delete should report not found, got %v", err)
	}
}

// TestRuntimeWithStore tests SAVE and LOAD through the interpreter
func TestRuntimeWithStore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rt := basic.NewRuntime(basic.Options{Store: s, Owner: "carol", Seed: 1})
	rt.Exec(ctx, "10 PRINT 1")
	if err := rt.Exec(ctx, `SAVE "one"`); err != nil {
		t.Fatalf("SAVE failed: %v", err)
	}

	other := basic.NewRuntime(basic.Options{Store: s, Owner: "carol", Seed: 1})
	if err := other.Exec(ctx, `LOAD "one"`); err != nil {
		t.Fatalf("LOAD failed: %v", err)
	}
	if other.Source() != "10 PRINT 1\n" {
		t.Errorf("Unexpected source %q", other.Source())
	}
}

// TestUsers tests registration and authentication
func TestUsers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, "alice", "secret123"); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if err := s.CreateUser(ctx, "alice", "other123"); !errors.Is(err, ErrUserExists) {
		t.Errorf("Expected ErrUserExists, got %v", err)
	}

	tests := []struct {
		name     string
		username string
		password string
		expected error
	}{
		{"valid", "alice", "secret123", nil},
		{"wrong password", "alice", "wrong", ErrInvalidCredentials},
		{"unknown user", "nobody", "secret123", ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Authenticate(ctx, tt.username, tt.password)
			if !errors.Is(err, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, err)
			}
		})
	}
}

// TestCreateUserValidation tests username and password rules
func TestCreateUserValidation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
		expected error
	}{
		{"too short", "ab", "secret123", ErrInvalidUsername},
		{"bad characters", "bob!", "secret123", ErrInvalidUsername},
		{"leading digit", "1bob", "secret123", ErrInvalidUsername},
		{"weak password", "bobby", "123", ErrWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.CreateUser(ctx, tt.username, tt.password); !errors.Is(err, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, err)
			}
		})
	}
}
