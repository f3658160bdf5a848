//go:build !linux

package dropbox

func renameNoReplace(oldpath, newpath string) error {
	return checkedRename(oldpath, newpath)
}
