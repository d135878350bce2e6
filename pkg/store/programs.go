package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/antibyte/retrobasic/pkg/basic"
	"github.com/antibyte/retrobasic/pkg/logger"

	"github.com/google/uuid"
)

var _ basic.ProgramStore = (*Store)(nil)

// ProgramInfo describes a saved program without its source.
type ProgramInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func checkName(name string) error {
	if !basic.ValidProgramName(name) {
		return basic.ErrInvalidName
	}
	return nil
}

// Save stores source under (owner, name), replacing an older version.
func (s *Store) Save(ctx context.Context, owner, name, source string) error {
	if err := checkName(name); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO programs (id, owner, name, source, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (owner, name) DO UPDATE
		SET source = excluded.source, updated_at = excluded.updated_at`,
		uuid.New().String(), owner, name, source, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("save program %q: %w", name, err)
	}
	logger.Debug(logger.AreaDatabase, "saved program %s/%s (%d bytes)", owner, name, len(source))
	return nil
}

// Load returns the source of a saved program.
func (s *Store) Load(ctx context.Context, owner, name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	var source string
	err := s.db.QueryRowContext(ctx,
		`SELECT source FROM programs WHERE owner = ? AND name = ?`, owner, name).Scan(&source)
	if errors.Is(err, sql.ErrNoRows) {
		return "", basic.ErrProgramNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load program %q: %w", name, err)
	}
	return source, nil
}

// List returns the names of owner's programs in alphabetical order.
func (s *Store) List(ctx context.Context, owner string) ([]string, error) {
	infos, err := s.Programs(ctx, owner)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	return names, nil
}

// Programs returns metadata of owner's programs in alphabetical order.
func (s *Store) Programs(ctx context.Context, owner string) ([]ProgramInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, updated_at FROM programs WHERE owner = ? ORDER BY name`, owner)
	if err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	defer rows.Close()

	var infos []ProgramInfo
	for rows.Next() {
		var info ProgramInfo
		var updated int64
		if err := rows.Scan(&info.ID, &info.Name, &updated); err != nil {
			return nil, err
		}
		info.UpdatedAt = time.Unix(0, updated)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Delete removes a saved program.
func (s *Store) Delete(ctx context.Context, owner, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM programs WHERE owner = ? AND name = ?`, owner, name)
	if err != nil {
		return fmt.Errorf("delete program %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return basic.ErrProgramNotFound
	}
	return nil
}
