package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/autovideo/api/internal/model"
)

// FaceStore persists registered faces in SQLite
type FaceStore struct {
	db *sql.DB
}

// NewFaceStore opens (and migrates) the database at path. ":memory:" is accepted for tests.
func NewFaceStore(path string) (*FaceStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return nil, fmt.Errorf("set journal_mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=5000;`); err != nil {
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	s := &FaceStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FaceStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *FaceStore) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS faces (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  descriptor TEXT NOT NULL,
  image_url TEXT NOT NULL,
  image_key TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_faces_created_at ON faces(created_at);
`)
	if err != nil {
		return fmt.Errorf("migrate sqlite: %w", err)
	}
	return nil
}

func (s *FaceStore) Create(ctx context.Context, f *model.Face) error {
	desc, err := json.Marshal(f.Descriptor)
	if err != nil {
		return fmt.Errorf("marshal descriptor: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO faces (id, name, descriptor, image_url, image_key, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Name, string(desc), f.ImageURL, f.ImageKey, formatTime(f.CreatedAt), formatTime(f.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert face: %w", err)
	}
	return nil
}

func (s *FaceStore) Get(ctx context.Context, id string) (*model.Face, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, name, descriptor, image_url, image_key, created_at, updated_at
FROM faces WHERE id = ?`, id)
	f, err := scanFace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return f, err
}

// List returns faces newest first.
func (s *FaceStore) List(ctx context.Context) ([]*model.Face, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, descriptor, image_url, image_key, created_at, updated_at
FROM faces ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list faces: %w", err)
	}
	defer rows.Close()

	faces := []*model.Face{}
	for rows.Next() {
		f, err := scanFace(rows)
		if err != nil {
			return nil, err
		}
		faces = append(faces, f)
	}
	return faces, rows.Err()
}

// Rename sets a new name and returns the updated face.
func (s *FaceStore) Rename(ctx context.Context, id, name string, at time.Time) (*model.Face, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE faces SET name = ?, updated_at = ? WHERE id = ?`,
		name, formatTime(at), id)
	if err != nil {
		return nil, fmt.Errorf("update face: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

// Delete removes a face and returns what was stored so the caller can drop its image.
func (s *FaceStore) Delete(ctx context.Context, id string) (*model.Face, error) {
	f, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM faces WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete face: %w", err)
	}
	return f, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFace(r rowScanner) (*model.Face, error) {
	var (
		f         model.Face
		desc      string
		createdAt string
		updatedAt string
	)
	if err := r.Scan(&f.ID, &f.Name, &desc, &f.ImageURL, &f.ImageKey, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(desc), &f.Descriptor); err != nil {
		return nil, fmt.Errorf("decode descriptor for %s: %w", f.ID, err)
	}
	f.CreatedAt = parseTime(createdAt)
	f.UpdatedAt = parseTime(updatedAt)
	return &f, nil
}

// Fixed width so that text ordering in SQL matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
