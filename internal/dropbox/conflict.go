package dropbox

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"dropbox/internal/file"
)

// maxSuffixAttempts bounds the search for a free archive name when several
// files collide within the same second.
const maxSuffixAttempts = 1000

// now is the clock used for disambiguation suffixes; tests replace it.
var now = time.Now

// FilePaths is the per-file destination plan. All three paths share the
// base name of the input file. It is derived, never stored.
type FilePaths struct {
	Error      string
	Processing string
	Processed  string
	Evicted    string // archive path of a stale processed file, if one was moved
}

// ArchiveIfOccupied moves any file already at destPath to errorPath so the
// slot can be reused without overwriting it. If destPath does not exist this
// is a no-op.
func ArchiveIfOccupied(destPath, errorPath string) error {
	_, err := Archive(destPath, errorPath)
	return err
}

// Archive is ArchiveIfOccupied that also reports where the occupant went,
// which is always errorPath. It returns "" when destPath was free.
func Archive(destPath, errorPath string) (string, error) {
	if _, err := os.Lstat(destPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", &Error{Kind: KindIO, Path: destPath, Err: err}
	}
	return MoveToError(destPath, errorPath)
}

// MoveToError renames src to errorPath and returns errorPath. If errorPath
// is already occupied, the older archive is first renamed aside with the
// current Unix time in seconds appended ("report.csv.1700000000"); further
// collisions within the same second add a counter
// ("report.csv.1700000000-2"). An existing archive is never replaced.
func MoveToError(src, errorPath string) (string, error) {
	err := renameNoReplace(src, errorPath)
	if err == nil {
		return errorPath, nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return "", &Error{Kind: KindIO, Path: src, Err: err}
	}

	ts := now()
	if ts.Before(time.Unix(0, 0)) {
		return "", &Error{
			Kind: KindClock,
			Path: src,
			Err:  fmt.Errorf("system time %s is before the Unix epoch", ts.Format(time.RFC3339)),
		}
	}

	if err := evict(errorPath, fmt.Sprintf("%s.%d", errorPath, ts.Unix())); err != nil {
		return "", &Error{Kind: KindIO, Path: errorPath, Err: err}
	}
	if err := renameNoReplace(src, errorPath); err != nil {
		return "", &Error{Kind: KindIO, Path: src, Err: err}
	}
	return errorPath, nil
}

// evict renames the file at path to suffixed, or to suffixed-n for the
// first free n. A path that is already gone needs no eviction.
func evict(path, suffixed string) error {
	for n := 1; n <= maxSuffixAttempts; n++ {
		candidate := suffixed
		if n > 1 {
			candidate = fmt.Sprintf("%s-%d", suffixed, n)
		}

		err := renameNoReplace(path, candidate)
		switch {
		case err == nil, errors.Is(err, fs.ErrNotExist):
			return nil
		case !errors.Is(err, fs.ErrExist):
			return err
		}
	}
	return fmt.Errorf("no free archive name for %s after %d attempts", path, maxSuffixAttempts)
}

// GenerateFilePaths builds the error, processing and processed destinations
// for src and evacuates any stale file occupying the processed slot.
//
// If the processing destination cannot be built, src is archived to the
// error directory before failing so it is not left stranded in the inbox.
// GenerateFilePaths never moves src into processing; that is the handler's
// job.
func GenerateFilePaths(dirs *DropBoxes, src string) (*FilePaths, error) {
	errorPath, err := file.CreateDestPath(dirs.Error, src)
	if err != nil {
		return nil, &Error{Kind: KindInvalid, Path: src, Err: err}
	}

	processingPath, err := file.CreateDestPath(dirs.Processing, src)
	if err != nil {
		if _, moveErr := MoveToError(src, errorPath); moveErr != nil {
			return nil, errors.Join(&Error{Kind: KindInvalid, Path: src, Err: err}, moveErr)
		}
		return nil, &Error{Kind: KindInvalid, Path: src, Err: err}
	}

	processedPath, err := file.CreateDestPath(dirs.Processed, src)
	if err != nil {
		return nil, &Error{Kind: KindInvalid, Path: src, Err: err}
	}

	evicted, err := Archive(processedPath, errorPath)
	if err != nil {
		return nil, err
	}

	return &FilePaths{
		Error:      errorPath,
		Processing: processingPath,
		Processed:  processedPath,
		Evicted:    evicted,
	}, nil
}

// Promote moves src into the processed directory, archiving any file that
// already occupies the slot. It returns the final path.
func Promote(dirs *DropBoxes, src string) (string, error) {
	dest, err := file.CreateDestPath(dirs.Processed, src)
	if err != nil {
		return "", &Error{Kind: KindInvalid, Path: src, Err: err}
	}
	errorPath, err := file.CreateDestPath(dirs.Error, src)
	if err != nil {
		return "", &Error{Kind: KindInvalid, Path: src, Err: err}
	}

	if err := ArchiveIfOccupied(dest, errorPath); err != nil {
		return "", err
	}
	if err := renameNoReplace(src, dest); err != nil {
		return "", &Error{Kind: KindIO, Path: src, Err: err}
	}
	return dest, nil
}

// Claim moves src from the inbox into plan.Processing. A file already
// sitting in processing under the same name is archived first.
func Claim(plan *FilePaths, src string) error {
	if err := ArchiveIfOccupied(plan.Processing, plan.Error); err != nil {
		return err
	}
	if err := renameNoReplace(src, plan.Processing); err != nil {
		return &Error{Kind: KindIO, Path: src, Err: err}
	}
	return nil
}
