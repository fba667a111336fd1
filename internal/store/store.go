// Package store owns the persisted database: one pretty-printed JSON
// document on disk, mirrored in memory under a single lock. Every
// successful mutation rewrites the whole document before the caller gets
// its result back.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"

	"btasks/internal/apperr"
	"btasks/internal/models"
)

// Store guards the in-memory database and its backing file. The mutex
// serializes all access: lookup and mutation as well as the flush and the
// response construction that follow.
type Store struct {
	mu   sync.Mutex
	path string
	db   *models.Database
}

// Open loads the database at path, or starts empty when the file is
// missing. A file that exists but does not parse is treated as no database:
// the store starts empty and the corrupt file is left in place untouched
// until the first successful mutation overwrites it.
func Open(path string) *Store {
	s := &Store{path: path, db: models.NewDatabase()}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("could not read database file, starting empty", "path", path, "err", err)
		}
		return s
	}

	db := models.NewDatabase()
	if err := json.Unmarshal(data, db); err != nil {
		log.Warn("database file is corrupt, starting empty; the file is preserved until the first successful change",
			"path", path, "err", err)
		return s
	}

	s.db = db
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// View runs fn under the lock without flushing. fn must not mutate the
// database.
func (s *Store) View(fn func(*models.Database) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.db)
}

// Update runs fn under the lock and flushes the whole database to disk when
// fn succeeds. A flush failure surfaces as an error so callers never report
// a mutation as durable when it was not; the in-memory change stays
// committed regardless.
func (s *Store) Update(fn func(*models.Database) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(s.db); err != nil {
		return err
	}
	return s.flush()
}

// flush serializes the database as pretty-printed JSON and renames a fully
// written temp file into place, so a crash mid-write cannot truncate the
// document. Parent directories are created on demand.
func (s *Store) flush() error {
	content, err := json.MarshalIndent(s.db, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "marshal database", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.IO("create data directory", err)
	}

	tmp, err := os.CreateTemp(dir, ".database-*.json")
	if err != nil {
		return apperr.IO("create temp file", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(content); err != nil {
		return apperr.IO("write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		return apperr.IO("sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return apperr.IO("close temp file", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return apperr.IO("rename temp file into place", err)
	}
	return nil
}
