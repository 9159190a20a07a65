package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSave(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(filepath.Join(dir, "exports"))
	require.NoError(t, err)

	path, err := store.Save("jhs-1/results.csv", []byte("name\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "exports", "jhs-1", "results.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "name\n", string(data))

	entries, err := os.ReadDir(filepath.Join(dir, "exports", "jhs-1"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLocalStorageRejectsEscapingPaths(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("../outside.csv", []byte("x"))
	assert.Error(t, err)
	_, err = store.Save("/tmp/outside.csv", []byte("x"))
	assert.Error(t, err)
	assert.Error(t, store.Delete(".."))
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	oldPath, err := store.Save("old.pdf", []byte("old"))
	require.NoError(t, err)
	_, err = store.Save("new.pdf", []byte("new"))
	require.NoError(t, err)
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, past, past))

	deleted, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old.pdf"}, deleted)
	assert.NoFileExists(t, oldPath)
	assert.FileExists(t, filepath.Join(dir, "new.pdf"))

	require.NoError(t, store.Delete("new.pdf"))
	require.NoError(t, store.Delete("new.pdf"))
}
