package wsrepo

import (
	"sort"
	"strings"
	"sync"
)

// MemoryRepository is a Repository held in memory. It is safe for
// concurrent use.
type MemoryRepository struct {
	mu      sync.RWMutex
	defs    map[string]*Definition // by folded ID
	changes map[string]string      // folded old ID -> new ID
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		defs:    make(map[string]*Definition),
		changes: make(map[string]string),
	}
}

// Contains reports whether a definition with the given ID exists.
func (r *MemoryRepository) Contains(id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.defs[fold(id)]
	return ok, nil
}

// Get returns a copy of the definition with the given ID.
func (r *MemoryRepository) Get(id string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[fold(id)]
	if !ok {
		return nil, notFound(id)
	}
	cp := *def
	return &cp, nil
}

// Set stores a copy of def.
func (r *MemoryRepository) Set(def *Definition) error {
	if err := validate(def); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.defs[fold(def.ID)]; ok && !strings.EqualFold(existing.StoreID, def.StoreID) {
		return alreadyExists(def.ID)
	}

	oldID := ""
	if def.StoreID != "" {
		if existing, ok := r.defs[fold(def.StoreID)]; ok {
			oldID = existing.ID
			delete(r.defs, fold(def.StoreID))
		}
	}

	def.StoreID = def.ID
	def.Modified = timeNow().UTC()
	cp := *def
	r.defs[fold(def.ID)] = &cp

	if oldID != "" && oldID != def.ID {
		r.recordChange(oldID, def.ID)
	}
	return nil
}

// recordChange points oldID, and every ID that was changed to oldID, at
// newID.
func (r *MemoryRepository) recordChange(oldID, newID string) {
	for k, v := range r.changes {
		if strings.EqualFold(v, oldID) {
			r.changes[k] = newID
		}
	}
	r.changes[fold(oldID)] = newID
}

// Remove deletes the definition with the given ID.
func (r *MemoryRepository) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.defs[fold(id)]; !ok {
		return notFound(id)
	}
	delete(r.defs, fold(id))
	return nil
}

// Conflate merges oldID into withID.
func (r *MemoryRepository) Conflate(oldID, withID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.defs[fold(oldID)]
	if !ok {
		return notFound(oldID)
	}
	with, ok := r.defs[fold(withID)]
	if !ok {
		return notFound(withID)
	}
	if old == with {
		return nil
	}
	delete(r.defs, fold(oldID))
	r.recordChange(old.ID, with.ID)
	return nil
}

// All returns copies of every definition, sorted by ID.
func (r *MemoryRepository) All() ([]*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Definition, 0, len(r.defs))
	for _, def := range r.defs {
		cp := *def
		out = append(out, &cp)
	}
	sortDefinitions(out)
	return out, nil
}

// ChangedTo returns the ID that id was last changed to.
func (r *MemoryRepository) ChangedTo(id string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	to, ok := r.changes[fold(id)]
	if !ok || to == id {
		return "", false, nil
	}
	return to, true, nil
}

// TextIDs returns the IDs of all text writing systems, sorted.
func (r *MemoryRepository) TextIDs() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for _, def := range r.defs {
		if !def.IsVoice() {
			ids = append(ids, def.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return fold(ids[i]) < fold(ids[j]) })
	return ids, nil
}
