// Package testutil provides test helpers backed by an in-memory recorder database.
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/Veraticus/ha-outliers/internal/storage"
)

// recorderSchema mirrors the parts of the Home Assistant recorder schema the scanner touches.
var recorderSchema = []string{
	`CREATE TABLE states_meta (
		metadata_id INTEGER PRIMARY KEY AUTOINCREMENT,
		entity_id VARCHAR(255)
	)`,
	`CREATE TABLE states (
		state_id INTEGER PRIMARY KEY AUTOINCREMENT,
		state VARCHAR(255),
		last_updated_ts FLOAT,
		old_state_id INTEGER REFERENCES states(state_id),
		metadata_id INTEGER REFERENCES states_meta(metadata_id)
	)`,
	`CREATE INDEX ix_states_metadata_id_last_updated_ts ON states(metadata_id, last_updated_ts)`,
	`CREATE INDEX ix_states_old_state_id ON states(old_state_id)`,
}

// BaseTime is the timestamp of the first seeded state.
var BaseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// TestDB represents a seeded recorder database.
type TestDB struct {
	Storage *storage.SQLStorage
	DB      *sql.DB
	t       *testing.T
	clock   time.Time
}

// SetupTestDB creates an in-memory recorder database with the states schema.
// It automatically handles cleanup.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return setup(t, ":memory:")
}

// SetupFileDB creates a recorder database file in a temporary directory and
// returns it with the file path, for code that opens the database itself.
func SetupFileDB(t *testing.T) (*TestDB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "home-assistant_v2.db")
	return setup(t, path), path
}

func setup(t *testing.T, path string) *TestDB {
	t.Helper()

	ctx := context.Background()
	store, err := storage.OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	for _, stmt := range recorderSchema {
		if _, err := store.DB().ExecContext(ctx, stmt); err != nil {
			t.Fatalf("failed to create schema: %v", err)
		}
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage: store,
		DB:      store.DB(),
		t:       t,
		clock:   BaseTime,
	}
}

// AddEntity registers an entity and returns its metadata id.
func (db *TestDB) AddEntity(entityID string) int64 {
	db.t.Helper()

	res, err := db.DB.Exec(`INSERT INTO states_meta (entity_id) VALUES (?)`, entityID)
	if err != nil {
		db.t.Fatalf("failed to add entity %q: %v", entityID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		db.t.Fatalf("failed to read entity id: %v", err)
	}
	return id
}

// AddState inserts one state a minute after the previous one, chained to the
// entity's previous state the way the recorder does it.
func (db *TestDB) AddState(metadataID int64, state string) int64 {
	db.t.Helper()

	var prev sql.NullInt64
	err := db.DB.QueryRow(`SELECT MAX(state_id) FROM states WHERE metadata_id = ?`, metadataID).Scan(&prev)
	if err != nil {
		db.t.Fatalf("failed to look up previous state: %v", err)
	}

	db.clock = db.clock.Add(time.Minute)
	res, err := db.DB.Exec(
		`INSERT INTO states (state, last_updated_ts, old_state_id, metadata_id) VALUES (?, ?, ?, ?)`,
		state, float64(db.clock.Unix()), prev, metadataID)
	if err != nil {
		db.t.Fatalf("failed to add state: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		db.t.Fatalf("failed to read state id: %v", err)
	}
	return id
}

// AddStates inserts each state in order and returns their ids.
func (db *TestDB) AddStates(metadataID int64, states ...string) []int64 {
	db.t.Helper()

	ids := make([]int64, len(states))
	for i, s := range states {
		ids[i] = db.AddState(metadataID, s)
	}
	return ids
}

// AddValues inserts numeric states.
func (db *TestDB) AddValues(metadataID int64, values ...float64) []int64 {
	db.t.Helper()

	states := make([]string, len(values))
	for i, v := range values {
		states[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return db.AddStates(metadataID, states...)
}

// AddRepeated inserts value n times.
func (db *TestDB) AddRepeated(metadataID int64, value float64, n int) []int64 {
	db.t.Helper()

	values := make([]float64, n)
	for i := range values {
		values[i] = value
	}
	return db.AddValues(metadataID, values...)
}

// StateValue returns the stored state of a record and whether it exists.
func (db *TestDB) StateValue(stateID int64) (string, bool) {
	db.t.Helper()

	var state sql.NullString
	err := db.DB.QueryRow(`SELECT state FROM states WHERE state_id = ?`, stateID).Scan(&state)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		db.t.Fatalf("failed to read state %d: %v", stateID, err)
	}
	return state.String, true
}

// OldStateID returns the back-reference of a record.
func (db *TestDB) OldStateID(stateID int64) sql.NullInt64 {
	db.t.Helper()

	var old sql.NullInt64
	if err := db.DB.QueryRow(`SELECT old_state_id FROM states WHERE state_id = ?`, stateID).Scan(&old); err != nil {
		db.t.Fatalf("failed to read old_state_id of %d: %v", stateID, err)
	}
	return old
}

// CountStates returns the number of stored states for an entity.
func (db *TestDB) CountStates(metadataID int64) int {
	db.t.Helper()

	var n int
	if err := db.DB.QueryRow(`SELECT COUNT(*) FROM states WHERE metadata_id = ?`, metadataID).Scan(&n); err != nil {
		db.t.Fatalf("failed to count states: %v", err)
	}
	return n
}
