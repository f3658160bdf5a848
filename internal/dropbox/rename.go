package dropbox

import (
	"io/fs"
	"os"
)

// checkedRename is the portable fallback for renameNoReplace: an occupancy
// check followed by os.Rename. A writer racing between the two can still be
// replaced; the Linux path closes that window.
func checkedRename(oldpath, newpath string) error {
	if _, err := os.Lstat(newpath); err == nil {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: fs.ErrExist}
	}
	return os.Rename(oldpath, newpath)
}
