package session

import (
	"os"
	"path/filepath"

	"github.com/cespare/xxhash"

	"github.com/ysy950803/tgflow/internal/errors"
)

// FileStore keeps the session as a JSON file, the default driver.
type FileStore struct {
	path string

	// OnSave receives the fingerprint of every payload this store writes,
	// letting a Watcher on the same path tell our writes from external ones.
	OnSave func(sum uint64)
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Load() (*Session, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrSessionNotFound
		}
		return nil, errors.SessionLoadFailed(err)
	}
	s, err := unmarshal(data)
	if err != nil {
		return nil, errors.SessionLoadFailed(err)
	}
	return s, nil
}

func (f *FileStore) Save(s *Session) error {
	data, err := s.marshal()
	if err != nil {
		return errors.SessionSaveFailed(err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return errors.SessionSaveFailed(err)
	}
	if f.OnSave != nil {
		f.OnSave(xxhash.Sum64(data))
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return errors.SessionSaveFailed(err)
	}
	return nil
}

func (f *FileStore) Close() error {
	return nil
}

func (f *FileStore) Path() string {
	return f.path
}
