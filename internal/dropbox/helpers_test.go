package dropbox

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// newTestDirs creates the four drop-box directories under a temp root.
func newTestDirs(t *testing.T) Dirs {
	t.Helper()
	root := t.TempDir()
	dirs := Dirs{
		Target:     filepath.Join(root, "target"),
		Error:      filepath.Join(root, "error"),
		Processing: filepath.Join(root, "processing"),
		Processed:  filepath.Join(root, "processed"),
	}
	for _, d := range []string{dirs.Target, dirs.Error, dirs.Processing, dirs.Processed} {
		require.NoError(t, os.Mkdir(d, 0755))
	}
	return dirs
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// names returns the sorted entry names of dir.
func names(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

// fixClock pins the disambiguation clock for the duration of a test.
func fixClock(t *testing.T, ts time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return ts }
	t.Cleanup(func() { now = prev })
}

// funcWaker runs fn instead of sleeping.
type funcWaker func(d time.Duration)

func (f funcWaker) Wait(d time.Duration) { f(d) }
