// Package storage persists per-resource JSON snapshots in a single data
// directory. Writes go through a temp-file-then-rename protocol so a crash
// mid-write never corrupts the previous durable snapshot.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type Store struct {
	dir string
}

// New ensures the data directory exists and returns a store over it.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// Dir returns the data directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the on-disk path for a snapshot file name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Save atomically replaces the named snapshot: the payload is written to a
// temporary file in the same directory, flushed to stable storage, then
// renamed over the destination.
func (s *Store) Save(name string, v any) error {
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	enc := json.NewEncoder(tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, s.Path(name))
}

// Load reads the named snapshot into v. The second return is false when no
// snapshot exists; decode and read errors are returned so callers can log
// and degrade to defaults.
func (s *Store) Load(name string, v any) (bool, error) {
	data, err := os.ReadFile(s.Path(name))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, err
	}
	return true, nil
}

// List returns the sorted resource ids whose snapshot files match
// prefix<id>.json.
func (s *Store) List(prefix string) []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}
	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json"))
	}
	sort.Strings(ids)
	return ids
}
