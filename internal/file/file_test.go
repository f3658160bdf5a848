package file

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryExists_TempDir(t *testing.T) {
	dir := t.TempDir()
	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	got, err := DirectoryExists(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDirectoryExists_RelativePathIsMadeAbsolute(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "inbox"), 0755))
	t.Chdir(dir)

	got, err := DirectoryExists("inbox")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
	assert.Equal(t, "inbox", filepath.Base(got))
}

func TestDirectoryExists_Missing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist")

	_, err := DirectoryExists(missing)
	require.Error(t, err)

	var dirErr *DirError
	require.True(t, errors.As(err, &dirErr))
	assert.Equal(t, PathNotExist, dirErr.Type)
	assert.Equal(t, missing, dirErr.Path)
}

func TestDirectoryExists_Empty(t *testing.T) {
	_, err := DirectoryExists("")

	var dirErr *DirError
	require.True(t, errors.As(err, &dirErr))
	assert.Equal(t, PathNotExist, dirErr.Type)
}

func TestDirectoryExists_RegularFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	_, err := DirectoryExists(path)

	var dirErr *DirError
	require.True(t, errors.As(err, &dirErr))
	assert.Equal(t, PathNotDir, dirErr.Type)
}

func TestCreateDestPath(t *testing.T) {
	tests := []struct {
		name string
		dir  string
		file string
		want string
	}{
		{"bare name", "/tmp", "myfile", "/tmp/myfile"},
		{"nested source", "/srv/done", "foo/bar.txt", "/srv/done/bar.txt"},
		{"absolute source", "/srv/done", "/srv/in/report.csv", "/srv/done/report.csv"},
		{"trailing separator", "/srv/done", "/srv/in/report/", "/srv/done/report"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CreateDestPath(tt.dir, tt.file)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateDestPath_Invalid(t *testing.T) {
	for _, file := range []string{"", ".", "..", "/", "a/.."} {
		t.Run(file, func(t *testing.T) {
			_, err := CreateDestPath("/tmp", file)

			var dirErr *DirError
			require.True(t, errors.As(err, &dirErr), "expected DirError for %q", file)
			assert.Equal(t, PathInvalid, dirErr.Type)
		})
	}
}

func TestCreateDestPath_PreservesBaseName_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("destination keeps the source base name under dir", prop.ForAll(
		func(dir, parent, name string) bool {
			dest, err := CreateDestPath("/"+dir, filepath.Join(parent, name))
			if err != nil {
				return false
			}
			return filepath.Dir(dest) == "/"+dir && filepath.Base(dest) == name
		},
		gen.Identifier(),
		gen.Identifier(),
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
