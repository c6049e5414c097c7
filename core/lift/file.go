package lift

import (
	"io"
	"os"

	"github.com/FocuswithJustin/liftws/core/errors"
	"github.com/FocuswithJustin/liftws/core/orphans"
	"github.com/FocuswithJustin/liftws/core/xml"
	"github.com/FocuswithJustin/liftws/internal/fileutil"
)

// Options configures a File.
type Options struct {
	// BackupDir receives an xz-compressed copy of the file before it is
	// replaced. Empty disables backups.
	BackupDir string
}

// Result describes one ReplaceWritingSystemID call.
type Result struct {
	Stats Stats

	// Changed is false when the rewritten document was byte-identical to
	// the original; the file is then left alone.
	Changed bool

	// BackupPath is the backup written before the replace, if any.
	BackupPath string

	// Digest is the BLAKE3 digest of the file's contents afterwards.
	Digest string
}

// File edits the writing systems of one LIFT file on disk.
type File struct {
	path string
	opts Options
}

// NewFile creates a File for the LIFT document at path.
func NewFile(path string, opts Options) *File {
	return &File{path: path, opts: opts}
}

// Path returns the file's path.
func (f *File) Path() string {
	return f.path
}

// WritingSystemsInUse returns every lang value in the file, in first-seen
// order.
func (f *File) WritingSystemsInUse() ([]string, error) {
	return ScanFile(f.path)
}

// ReplaceWritingSystemID renames oldID to newID throughout the file.
//
// The document is rewritten into a temp file in the same directory, which
// then replaces the original. On any error the temp file is removed and
// the original is left as it was.
func (f *File) ReplaceWritingSystemID(oldID, newID string) (*Result, error) {
	in, err := os.Open(f.path)
	if err != nil {
		return nil, errors.NewIO("open", f.path, err)
	}
	defer in.Close()

	tmp, err := fileutil.CreateTemp(f.path)
	if err != nil {
		return nil, err
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	before := fileutil.NewHasher()
	after := fileutil.NewHasher()

	src := xml.NewReader(io.TeeReader(in, before))
	dst := xml.NewWriter(io.MultiWriter(tmp, after), tmpPath)

	stats, err := Rewrite(src, dst, oldID, newID)
	if err != nil {
		return nil, withPath(err, f.path)
	}
	if err := dst.Flush(); err != nil {
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, errors.NewIO("close", tmpPath, err)
	}

	result := &Result{Stats: stats, Digest: after.Hex()}
	if before.Hex() == after.Hex() {
		return result, nil
	}

	if f.opts.BackupDir != "" {
		backup, err := fileutil.BackupXZ(f.path, f.opts.BackupDir)
		if err != nil {
			return nil, err
		}
		result.BackupPath = backup
	}

	committed = true
	if err := fileutil.ReplaceFile(tmpPath, f.path); err != nil {
		return nil, err
	}
	result.Changed = true
	return result, nil
}

// CreateNonExistentWritingSystemsFoundInFile makes sure every writing
// system used in the file exists in repo, renaming tags in the file where
// repo knows a better id for them.
func (f *File) CreateNonExistentWritingSystemsFoundInFile(repo orphans.Repository) (*orphans.Report, error) {
	ids, err := f.WritingSystemsInUse()
	if err != nil {
		return nil, err
	}
	return orphans.Find(ids, func(oldID, newID string) error {
		_, err := f.ReplaceWritingSystemID(oldID, newID)
		return err
	}, repo)
}
