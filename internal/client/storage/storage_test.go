package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/QuizDesk/internal/models"
)

func TestFileStore_LoadMissingFile(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "tokens.json"))

	creds, err := fs.Load()
	require.NoError(t, err)
	assert.True(t, creds.Empty())
}

func TestFileStore_SaveLoadClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tokens.json")
	fs := NewFileStore(path)

	want := models.Credentials{Access: "a1", Refresh: "r1"}
	require.NoError(t, fs.Save(want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := fs.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// a second store over the same file resumes the session
	got, err = NewFileStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, fs.Clear())
	got, err = fs.Load()
	require.NoError(t, err)
	assert.True(t, got.Empty())

	// clearing twice is fine
	assert.NoError(t, fs.Clear())
}

func TestFileStore_RejectsHalfPair(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "tokens.json"))

	assert.ErrorIs(t, fs.Save(models.Credentials{Access: "only"}), ErrHalfPair)
	assert.ErrorIs(t, fs.Save(models.Credentials{Refresh: "only"}), ErrHalfPair)

	_, err := os.Stat(fs.Path())
	assert.True(t, os.IsNotExist(err), "nothing should be written")
}

func TestFileStore_HalfPairOnDiskLoadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	buf, _ := json.Marshal(models.Credentials{Access: "stale"})
	require.NoError(t, os.WriteFile(path, buf, 0o600))

	creds, err := NewFileStore(path).Load()
	require.NoError(t, err)
	assert.True(t, creds.Empty())
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("not-json"), 0o600))

	_, err := NewFileStore(path).Load()
	assert.Error(t, err)
}

func TestNewFileStore_DefaultPath(t *testing.T) {
	assert.Equal(t, DefaultTokenFile, NewFileStore("").Path())
}
