// Package wsrepo stores writing-system definitions.
//
// A definition is identified by its ID, compared case insensitively. Each
// stored definition remembers the ID it was stored under (StoreID), so
// changing the ID of a fetched definition and setting it again renames it
// in place. Every such rename is kept in a change map, which lets callers
// redirect data still tagged with an old ID to the new one.
package wsrepo

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/FocuswithJustin/liftws/core/errors"
	"github.com/FocuswithJustin/liftws/core/wstag"
)

// Injectable functions for testing
var timeNow = time.Now

// Definition is one writing system.
type Definition struct {
	// ID is the writing system's tag, e.g. "de-CH".
	ID string

	// Name is an optional display name.
	Name string

	// StoreID is the ID the definition was last stored under. It is empty
	// for a definition that was never stored.
	StoreID string

	// Modified is set by the repository on every Set.
	Modified time.Time
}

// IsVoice reports whether d is an audio writing system.
func (d *Definition) IsVoice() bool {
	return wstag.IsVoice(d.ID)
}

// Repository is a store of writing-system definitions.
type Repository interface {
	// Contains reports whether a definition with the given ID exists.
	Contains(id string) (bool, error)

	// Get returns the definition with the given ID or a NotFoundError.
	Get(id string) (*Definition, error)

	// Set stores def. A definition whose ID is already used by another
	// stored definition is rejected with ErrAlreadyExists. On success
	// def.StoreID is updated to def.ID.
	Set(def *Definition) error

	// Remove deletes the definition with the given ID.
	Remove(id string) error

	// Conflate merges oldID into withID: oldID is removed and recorded as
	// changed to withID.
	Conflate(oldID, withID string) error

	// All returns every definition, sorted by ID.
	All() ([]*Definition, error)

	// ChangedTo returns the ID that id was last changed to, if any.
	ChangedTo(id string) (string, bool, error)

	// TextIDs returns the IDs of all definitions that are not voice
	// writing systems, sorted.
	TextIDs() ([]string, error)
}

// FilterTextIDs returns the ids that name text writing systems stored in
// repo, keeping their order.
func FilterTextIDs(repo Repository, ids []string) ([]string, error) {
	textIDs, err := repo.TextIDs()
	if err != nil {
		return nil, err
	}
	text := make(map[string]bool, len(textIDs))
	for _, id := range textIDs {
		text[fold(id)] = true
	}

	var out []string
	for _, id := range ids {
		if text[fold(id)] {
			out = append(out, id)
		}
	}
	return out, nil
}

func fold(id string) string {
	return strings.ToLower(id)
}

func validate(def *Definition) error {
	if def == nil {
		return errors.NewValidation("definition", "nil writing system definition")
	}
	if strings.TrimSpace(def.ID) == "" {
		return errors.NewValidation("id", "writing system id is empty")
	}
	return nil
}

func alreadyExists(id string) error {
	return fmt.Errorf("unable to set writing system %q because this id already exists: %w", id, errors.ErrAlreadyExists)
}

func notFound(id string) error {
	return errors.NewNotFound("writing system", id)
}

func sortDefinitions(defs []*Definition) {
	sort.Slice(defs, func(i, j int) bool {
		return fold(defs[i].ID) < fold(defs[j].ID)
	})
}
