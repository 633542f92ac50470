// Package backfillstore persists the backfill pager's per-address
// resume cursor, replacing the original tool's jsonl replay file with a
// small sqlite checkpoint table, adapted from the bot's storage.DB.
package backfillstore

import (
	"database/sql"
	"strings"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// Store wraps the sqlite checkpoint database.
type Store struct {
	db *sql.DB
}

// NewStore opens (and migrates) the checkpoint database at path.
func NewStore(path string) (*Store, error) {
	dsn := path
	if !strings.Contains(path, "?") {
		dsn += "?"
	} else {
		dsn += "&"
	}
	dsn += "_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := createTables(db); err != nil {
		return nil, err
	}

	log.Info().Str("path", path).Msg("backfill checkpoint store initialized")
	return &Store{db: db}, nil
}

func createTables(db *sql.DB) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS checkpoints (
		address TEXT PRIMARY KEY,
		last_signature TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// GetCheckpoint returns the most recently processed signature for
// address, and false if no checkpoint exists yet.
func (s *Store) GetCheckpoint(address string) (signature string, found bool, err error) {
	err = s.db.QueryRow(`SELECT last_signature FROM checkpoints WHERE address = ?`, address).Scan(&signature)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return signature, true, nil
}

// SetCheckpoint records signature as the most recent one processed for
// address, at unixTime.
func (s *Store) SetCheckpoint(address, signature string, unixTime int64) error {
	_, err := s.db.Exec(`
		INSERT INTO checkpoints (address, last_signature, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET last_signature = excluded.last_signature, updated_at = excluded.updated_at`,
		address, signature, unixTime)
	return err
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
