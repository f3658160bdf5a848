// Package file validates drop-box directories and builds destination paths.
package file

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirErrorType represents the type of directory or path error.
type DirErrorType string

const (
	// PathNotExist indicates the path does not exist.
	PathNotExist DirErrorType = "PATH_NOT_EXIST"
	// PathNotDir indicates the path exists but is not a directory.
	PathNotDir DirErrorType = "PATH_NOT_DIR"
	// PathInvalid indicates the path has no usable file name component.
	PathInvalid DirErrorType = "PATH_INVALID"
)

// DirError represents an error raised while validating a directory or
// deriving a destination path.
type DirError struct {
	Type DirErrorType
	Path string
	Err  error
}

func (e *DirError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Path)
}

func (e *DirError) Unwrap() error {
	return e.Err
}

// DirectoryExists checks that dir exists and is a directory.
// It returns the absolute path with symlinks resolved.
func DirectoryExists(dir string) (string, error) {
	if dir == "" {
		return "", &DirError{Type: PathNotExist, Path: dir}
	}

	info, err := os.Stat(dir)
	if err != nil {
		// Unreadable parents are reported the same way as missing paths.
		return "", &DirError{Type: PathNotExist, Path: dir, Err: err}
	}
	if !info.IsDir() {
		return "", &DirError{Type: PathNotDir, Path: dir}
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", &DirError{Type: PathInvalid, Path: dir, Err: err}
	}
	resolved, err := filepath.EvalSymlinks(absDir)
	if err != nil {
		return "", &DirError{Type: PathNotExist, Path: dir, Err: err}
	}
	return resolved, nil
}

// BaseName returns the final element of path, or false when path has
// no file name ("", ".", ".." or a bare root).
func BaseName(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	base := filepath.Base(path)
	switch base {
	case ".", "..", string(filepath.Separator):
		return "", false
	}
	return base, true
}

// CreateDestPath joins the base name of file onto dir.
//
// Examples:
//   - ("/srv/done", "/srv/in/report.csv") -> "/srv/done/report.csv"
//   - ("/srv/done", "..") -> PATH_INVALID
func CreateDestPath(dir, file string) (string, error) {
	base, ok := BaseName(file)
	if !ok {
		return "", &DirError{Type: PathInvalid, Path: file}
	}
	return filepath.Join(dir, base), nil
}
