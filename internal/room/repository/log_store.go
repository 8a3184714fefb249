package repository

import (
	"fmt"
	"os"
	"path/filepath"
)

// SQLiteLogStore keeps one sqlite database file per room under a storage
// directory and removes the files again when the room is deleted.
type SQLiteLogStore struct {
	dir string
}

// NewSQLiteLogStore create a SQLiteLogStore rooted at dir
func NewSQLiteLogStore(dir string) *SQLiteLogStore {
	return &SQLiteLogStore{dir: dir}
}

func (s *SQLiteLogStore) path(roomID string) string {
	return filepath.Join(s.dir, roomID+".db")
}

// Open opens (creating if needed) the room's message log.
func (s *SQLiteLogStore) Open(roomID string) (MessageRepository, error) {
	return NewSQLiteMessageRepository(s.path(roomID))
}

// Remove deletes the room's database file along with its WAL sidecars. A
// room that never stored anything is not an error.
func (s *SQLiteLogStore) Remove(roomID string) error {
	base := s.path(roomID)
	for _, path := range []string{base, base + "-wal", base + "-shm"} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove room log %s: %w", path, err)
		}
	}
	return nil
}
