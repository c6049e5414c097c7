// Package fileutil provides the file operations used around a rewrite:
// temp files next to their destination, atomic replacement, content
// digests and compressed backups.
package fileutil

import (
	"os"
	"path/filepath"

	"github.com/FocuswithJustin/liftws/core/errors"
)

// Injectable functions for testing
var (
	osRename = os.Rename
	osChmod  = os.Chmod
)

// CreateTemp creates an empty temp file in the directory of dst, so that
// a later ReplaceFile is a same-filesystem rename.
func CreateTemp(dst string) (*os.File, error) {
	dir, base := filepath.Split(dst)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, "."+base+"-*.tmp")
	if err != nil {
		return nil, errors.NewIO("create temp file for", dst, err)
	}
	return f, nil
}

// ReplaceFile moves the completed file tmpPath over dstPath. The rename is
// the commit point: until it succeeds dstPath keeps its old contents. The
// permissions of an existing dstPath carry over to the new file. On failure
// tmpPath is removed.
func ReplaceFile(tmpPath, dstPath string) error {
	if info, err := os.Stat(dstPath); err == nil {
		if err := osChmod(tmpPath, info.Mode().Perm()); err != nil {
			os.Remove(tmpPath)
			return errors.NewIO("chmod", tmpPath, err)
		}
	}

	if err := osRename(tmpPath, dstPath); err != nil {
		os.Remove(tmpPath)
		return errors.NewIO("rename", tmpPath, err)
	}
	return nil
}
