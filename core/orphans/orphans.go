// Package orphans reconciles the writing systems used in a document with a
// writing-system repository.
//
// An orphan is a tag that occurs in the document but has no definition in
// the repository. Each orphan is either redirected to the definition it was
// renamed to, or cleaned up into a valid tag that is created when missing.
package orphans

import (
	"github.com/FocuswithJustin/liftws/core/errors"
	"github.com/FocuswithJustin/liftws/core/wsrepo"
	"github.com/FocuswithJustin/liftws/core/wstag"
)

// Repository is the part of wsrepo.Repository the resolver needs.
type Repository interface {
	Contains(id string) (bool, error)
	ChangedTo(id string) (string, bool, error)
	Set(def *wsrepo.Definition) error
}

// ReplaceFunc renames oldID to newID in the document.
type ReplaceFunc func(oldID, newID string) error

// Rename is one replacement made in the document.
type Rename struct {
	From string
	To   string
}

// Report lists what Find changed.
type Report struct {
	Created []string
	Renamed []Rename
}

// Empty reports whether Find changed nothing.
func (r *Report) Empty() bool {
	return len(r.Created) == 0 && len(r.Renamed) == 0
}

// Find resolves every id missing from repo. Empty and repeated ids are
// skipped.
//
// An id the repository recorded as changed to an existing definition is
// replaced by that definition's id. Otherwise the id is cleaned with
// wstag.Clean, the cleaned id is created in repo when missing, and the id
// is replaced when cleaning changed it.
//
// Find stops at the first error; the report covers the work done until then.
func Find(ids []string, replace ReplaceFunc, repo Repository) (*Report, error) {
	report := &Report{}
	seen := make(map[string]bool)

	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		ok, err := repo.Contains(id)
		if err != nil {
			return report, err
		}
		if ok {
			continue
		}

		to, changed, err := repo.ChangedTo(id)
		if err != nil {
			return report, err
		}
		if changed {
			exists, err := repo.Contains(to)
			if err != nil {
				return report, err
			}
			if exists {
				if err := replace(id, to); err != nil {
					return report, errors.Wrapf(err, "replacing %q with %q", id, to)
				}
				report.Renamed = append(report.Renamed, Rename{From: id, To: to})
				continue
			}
		}

		cleaned := wstag.Clean(id)
		exists, err := repo.Contains(cleaned)
		if err != nil {
			return report, err
		}
		if !exists {
			if err := repo.Set(&wsrepo.Definition{ID: cleaned}); err != nil {
				return report, errors.Wrapf(err, "creating writing system %q", cleaned)
			}
			report.Created = append(report.Created, cleaned)
		}
		if cleaned != id {
			if err := replace(id, cleaned); err != nil {
				return report, errors.Wrapf(err, "replacing %q with %q", id, cleaned)
			}
			report.Renamed = append(report.Renamed, Rename{From: id, To: cleaned})
		}
	}
	return report, nil
}
