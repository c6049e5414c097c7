package wsrepo

import (
	"database/sql"
	"strings"
	"time"

	"github.com/FocuswithJustin/liftws/core/errors"
	"github.com/FocuswithJustin/liftws/core/sqlite"
)

// migrations holds the registry schema; see sqlite.Migrate.
var migrations = []string{
	`CREATE TABLE writing_systems (
		id       TEXT NOT NULL PRIMARY KEY COLLATE NOCASE,
		name     TEXT NOT NULL DEFAULT '',
		modified TEXT NOT NULL
	);
	CREATE TABLE id_changes (
		old_id TEXT NOT NULL PRIMARY KEY COLLATE NOCASE,
		new_id TEXT NOT NULL
	);`,
}

// SQLiteRepository is a Repository persisted in a SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLite opens, creating if needed, the registry database at path.
func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sqlite.OpenFile(path)
	if err != nil {
		return nil, err
	}
	return newSQLite(db)
}

// OpenSQLiteMemory opens a registry that lives only as long as the
// repository.
func OpenSQLiteMemory() (*SQLiteRepository, error) {
	db, err := sqlite.OpenMemory()
	if err != nil {
		return nil, err
	}
	return newSQLite(db)
}

func newSQLite(db *sql.DB) (*SQLiteRepository, error) {
	if err := sqlite.Migrate(db, migrations); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initializing writing system registry")
	}
	return &SQLiteRepository{db: db}, nil
}

// Close closes the database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Contains reports whether a definition with the given ID exists.
func (r *SQLiteRepository) Contains(id string) (bool, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM writing_systems WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, errors.Wrapf(err, "looking up writing system %q", id)
	}
	return n > 0, nil
}

// Get returns the definition with the given ID.
func (r *SQLiteRepository) Get(id string) (*Definition, error) {
	row := r.db.QueryRow(`SELECT id, name, modified FROM writing_systems WHERE id = ?`, id)
	def, err := scanDefinition(row)
	if err == sql.ErrNoRows {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading writing system %q", id)
	}
	return def, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDefinition(s scanner) (*Definition, error) {
	var def Definition
	var modified string
	if err := s.Scan(&def.ID, &def.Name, &modified); err != nil {
		return nil, err
	}
	def.StoreID = def.ID
	if t, err := time.Parse(time.RFC3339Nano, modified); err == nil {
		def.Modified = t
	}
	return &def, nil
}

// Set stores def.
func (r *SQLiteRepository) Set(def *Definition) error {
	if err := validate(def); err != nil {
		return err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return errors.Wrap(err, "starting transaction")
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRow(`SELECT id FROM writing_systems WHERE id = ?`, def.ID).Scan(&existing)
	switch {
	case err == nil:
		if !strings.EqualFold(existing, def.StoreID) {
			return alreadyExists(def.ID)
		}
	case err != sql.ErrNoRows:
		return errors.Wrapf(err, "looking up writing system %q", def.ID)
	}

	oldID := ""
	if def.StoreID != "" {
		err := tx.QueryRow(`SELECT id FROM writing_systems WHERE id = ?`, def.StoreID).Scan(&oldID)
		if err != nil && err != sql.ErrNoRows {
			return errors.Wrapf(err, "looking up writing system %q", def.StoreID)
		}
	}

	modified := timeNow().UTC()
	if oldID != "" {
		_, err = tx.Exec(`UPDATE writing_systems SET id = ?, name = ?, modified = ? WHERE id = ?`,
			def.ID, def.Name, modified.Format(time.RFC3339Nano), oldID)
	} else {
		_, err = tx.Exec(`INSERT INTO writing_systems (id, name, modified) VALUES (?, ?, ?)`,
			def.ID, def.Name, modified.Format(time.RFC3339Nano))
	}
	if err != nil {
		return errors.Wrapf(err, "storing writing system %q", def.ID)
	}

	if oldID != "" && oldID != def.ID {
		if err := recordChange(tx, oldID, def.ID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "committing writing system")
	}
	def.StoreID = def.ID
	def.Modified = modified
	return nil
}

func recordChange(tx *sql.Tx, oldID, newID string) error {
	if _, err := tx.Exec(`UPDATE id_changes SET new_id = ? WHERE new_id = ? COLLATE NOCASE`, newID, oldID); err != nil {
		return errors.Wrap(err, "updating id changes")
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO id_changes (old_id, new_id) VALUES (?, ?)`, oldID, newID); err != nil {
		return errors.Wrap(err, "recording id change")
	}
	return nil
}

// Remove deletes the definition with the given ID.
func (r *SQLiteRepository) Remove(id string) error {
	res, err := r.db.Exec(`DELETE FROM writing_systems WHERE id = ?`, id)
	if err != nil {
		return errors.Wrapf(err, "removing writing system %q", id)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound(id)
	}
	return nil
}

// Conflate merges oldID into withID.
func (r *SQLiteRepository) Conflate(oldID, withID string) error {
	old, err := r.Get(oldID)
	if err != nil {
		return err
	}
	with, err := r.Get(withID)
	if err != nil {
		return err
	}
	if strings.EqualFold(old.ID, with.ID) {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return errors.Wrap(err, "starting transaction")
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM writing_systems WHERE id = ?`, old.ID); err != nil {
		return errors.Wrapf(err, "removing writing system %q", old.ID)
	}
	if err := recordChange(tx, old.ID, with.ID); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "committing conflation")
}

// All returns every definition, sorted by ID.
func (r *SQLiteRepository) All() ([]*Definition, error) {
	rows, err := r.db.Query(`SELECT id, name, modified FROM writing_systems`)
	if err != nil {
		return nil, errors.Wrap(err, "listing writing systems")
	}
	defer rows.Close()

	var defs []*Definition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, errors.Wrap(err, "listing writing systems")
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "listing writing systems")
	}
	sortDefinitions(defs)
	return defs, nil
}

// ChangedTo returns the ID that id was last changed to.
func (r *SQLiteRepository) ChangedTo(id string) (string, bool, error) {
	var to string
	err := r.db.QueryRow(`SELECT new_id FROM id_changes WHERE old_id = ?`, id).Scan(&to)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "looking up id change for %q", id)
	}
	if to == id {
		return "", false, nil
	}
	return to, true, nil
}

// TextIDs returns the IDs of all text writing systems, sorted.
func (r *SQLiteRepository) TextIDs() ([]string, error) {
	defs, err := r.All()
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, def := range defs {
		if !def.IsVoice() {
			ids = append(ids, def.ID)
		}
	}
	return ids, nil
}
