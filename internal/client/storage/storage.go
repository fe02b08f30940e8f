package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/atinyakov/QuizDesk/internal/models"
)

// DefaultTokenFile is used when no path is configured.
const DefaultTokenFile = "tokens.json"

// FileStore keeps the credential pair in a JSON file readable only by the
// owner.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultTokenFile
	}
	return &FileStore{path: path}
}

// Path returns the backing file.
func (fs *FileStore) Path() string { return fs.path }

func (fs *FileStore) Load() (models.Credentials, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, err := os.Open(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.Credentials{}, nil
		}
		return models.Credentials{}, err
	}
	defer f.Close()

	var creds models.Credentials
	if err := json.NewDecoder(f).Decode(&creds); err != nil {
		return models.Credentials{}, fmt.Errorf("decode %s: %w", fs.path, err)
	}
	// A half pair on disk is treated as no session at all.
	if !creds.Complete() {
		return models.Credentials{}, nil
	}
	return creds, nil
}

func (fs *FileStore) Save(creds models.Credentials) error {
	if !creds.Complete() {
		return ErrHalfPair
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if dir := filepath.Dir(fs.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	// Write to a sibling file and rename so a crash never leaves a torn pair.
	tmp := fs.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(creds); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, fs.path)
}

func (fs *FileStore) Clear() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	err := os.Remove(fs.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
