// Package store persists one record per room, keyed by room code. The layout
// is exactly {state, nextEntityId}; schema evolution is handled by the game
// package's default-fill migration on load, not here.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"invaders/internal/game"
)

// ErrNotFound is returned when no record exists for a room code.
var ErrNotFound = errors.New("room record not found")

// Record is the persisted unit: the full game state plus the entity id
// counter, written atomically together so replay never reuses an id.
type Record struct {
	State        *game.GameState `json:"state"`
	NextEntityID int64           `json:"nextEntityId"`
}

// Store is the room persistence interface the Room depends on.
type Store interface {
	Save(roomCode string, rec Record) error
	Load(roomCode string) (Record, error)
	Delete(roomCode string) error
}

// FileStore keeps one JSON file per room under a directory. Writes go to a
// temp file and rename into place, so a crash never leaves a torn record.
type FileStore struct {
	dir string
}

// NewFileStore creates the backing directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (st *FileStore) path(roomCode string) string {
	// Room codes are uppercase base36, but never trust the key as a path.
	safe := strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, roomCode)
	return filepath.Join(st.dir, safe+".json")
}

// Save writes the record atomically.
func (st *FileStore) Save(roomCode string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode room %s: %w", roomCode, err)
	}
	final := st.path(roomCode)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write room %s: %w", roomCode, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("commit room %s: %w", roomCode, err)
	}
	return nil
}

// Load reads and decodes a record; the caller runs state migration.
func (st *FileStore) Load(roomCode string) (Record, error) {
	data, err := os.ReadFile(st.path(roomCode))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("read room %s: %w", roomCode, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode room %s: %w", roomCode, err)
	}
	if rec.State == nil {
		return Record{}, fmt.Errorf("decode room %s: empty state", roomCode)
	}
	return rec, nil
}

// Delete removes a room's record. Deleting a missing record is not an error.
func (st *FileStore) Delete(roomCode string) error {
	err := os.Remove(st.path(roomCode))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete room %s: %w", roomCode, err)
	}
	return nil
}
