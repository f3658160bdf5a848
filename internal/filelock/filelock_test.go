package filelock

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire_Exclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locks", "reports.lock")

	first, err := Acquire(path)
	require.NoError(t, err)
	assert.Equal(t, path, first.Path())
	assert.FileExists(t, path)

	_, err = Acquire(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocked))

	require.NoError(t, first.Unlock())

	second, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, second.Unlock())
}

func TestTryLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lock")
	a := NewFileLock(path)
	b := NewFileLock(path)

	ok, err := a.TryLock()
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.TryLock()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Unlock())
}

func TestAtomicWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "dropbox.yaml")

	require.NoError(t, AtomicWrite(path, []byte("first"), 0600))
	require.NoError(t, AtomicWrite(path, []byte("second"), 0600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestAtomicWrite_FailureLeavesOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(path, 0755))

	err := AtomicWrite(path, []byte("x"), 0644)
	require.Error(t, err, "cannot replace a directory")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLockAndWrite_Concurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, LockAndWrite(path, []byte("payload"), 0644))
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}
