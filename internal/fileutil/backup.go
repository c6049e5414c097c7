package fileutil

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/liftws/core/errors"
)

// Injectable functions for testing
var (
	xzNewWriter = xz.NewWriter
	timeNow     = time.Now
)

// BackupXZ writes an xz-compressed copy of path into dir and returns the
// backup's path. Backups are named <base>.<UTC timestamp>.xz.
func BackupXZ(path, dir string) (string, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", errors.NewIO("open", path, err)
	}
	defer in.Close()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.NewIO("create backup directory", dir, err)
	}

	name := filepath.Base(path) + "." + timeNow().UTC().Format("20060102T150405.000000000Z") + ".xz"
	backupPath := filepath.Join(dir, name)

	tmp, err := CreateTemp(backupPath)
	if err != nil {
		return "", err
	}
	fail := func(op string, err error) (string, error) {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", errors.NewIO(op, backupPath, err)
	}

	zw, err := xzNewWriter(tmp)
	if err != nil {
		return fail("compress", err)
	}
	if _, err := io.Copy(zw, in); err != nil {
		return fail("compress", err)
	}
	if err := zw.Close(); err != nil {
		return fail("compress", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", errors.NewIO("close", backupPath, err)
	}
	if err := osRename(tmp.Name(), backupPath); err != nil {
		os.Remove(tmp.Name())
		return "", errors.NewIO("rename", backupPath, err)
	}
	return backupPath, nil
}

// RestoreXZ decompresses a backup made by BackupXZ into dst.
func RestoreXZ(backupPath, dst string) error {
	in, err := os.Open(backupPath)
	if err != nil {
		return errors.NewIO("open", backupPath, err)
	}
	defer in.Close()

	zr, err := xz.NewReader(in)
	if err != nil {
		return errors.NewIO("decompress", backupPath, err)
	}

	tmp, err := CreateTemp(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, zr); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.NewIO("decompress", backupPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.NewIO("close", tmp.Name(), err)
	}
	return ReplaceFile(tmp.Name(), dst)
}
