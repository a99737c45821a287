package mappingcache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nerveband/amp-resolver/logging"
)

// ErrStoreUnavailable wraps any I/O failure against the persistent store;
// the Cache facade catches it and degrades to in-memory only.
var ErrStoreUnavailable = errors.New("mappingcache: persistent store unavailable")

// persistentStore is the SQLite-backed verified-mapping table. Grounded on
// the teacher's db.DB: a thin *sql.DB wrapper opened with mattn/go-sqlite3.
type persistentStore struct {
	db     *sql.DB
	logger logging.Logger
}

func openPersistentStore(path string, logger logging.Logger) (*persistentStore, error) {
	if logger == nil {
		logger = logging.Nop
	}
	if dir := filepath.Dir(path); dir != "." && dir != "/" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: creating %s: %v", ErrStoreUnavailable, dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrStoreUnavailable, path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: pinging %s: %v", ErrStoreUnavailable, path, err)
	}

	s := &persistentStore{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *persistentStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS verified_mappings (
		track_hash TEXT PRIMARY KEY,
		artist_name TEXT NOT NULL,
		release_name TEXT,
		confidence TEXT NOT NULL,
		manual BOOLEAN NOT NULL DEFAULT 0,
		last_used_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("%w: migrating verified_mappings: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *persistentStore) close() error {
	return s.db.Close()
}

// lookup returns the stored Entry for trackHash, if any.
func (s *persistentStore) lookup(trackHash string) (Entry, bool, error) {
	var e Entry
	var manual int
	var confidence string
	var releaseName sql.NullString
	err := s.db.QueryRow(`
		SELECT artist_name, release_name, confidence, manual, last_used_at
		FROM verified_mappings WHERE track_hash = ?`, trackHash).
		Scan(&e.ArtistName, &releaseName, &confidence, &manual, &e.LastUsedAt)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("%w: looking up %s: %v", ErrStoreUnavailable, trackHash, err)
	}
	e.ReleaseName = releaseName.String
	e.Confidence = Confidence(confidence)
	e.Manual = manual != 0
	return e, true, nil
}

// store inserts or replaces the row for trackHash, enforcing "manual always
// wins over auto" per spec.md §4.E. allowLow lifts the high/medium/manual
// restriction for the Dispatcher's persist_low_matches policy.
func (s *persistentStore) store(trackHash string, e Entry, allowLow bool) error {
	eligible := e.Confidence == ConfidenceHigh || e.Confidence == ConfidenceMedium || e.Confidence == ConfidenceManual
	if !eligible && !(allowLow && e.Confidence == ConfidenceLow) {
		return ErrNotPersistable
	}

	existing, found, err := s.lookup(trackHash)
	if err != nil {
		return err
	}
	if found && existing.Manual && !e.Manual {
		return nil
	}

	_, err = s.db.Exec(`
		INSERT INTO verified_mappings (track_hash, artist_name, release_name, confidence, manual, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(track_hash) DO UPDATE SET
			artist_name = excluded.artist_name,
			release_name = excluded.release_name,
			confidence = excluded.confidence,
			manual = excluded.manual,
			last_used_at = excluded.last_used_at`,
		trackHash, e.ArtistName, e.ReleaseName, string(e.Confidence), e.Manual, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: storing %s: %v", ErrStoreUnavailable, trackHash, err)
	}
	return nil
}

// touch updates last_used_at on a cache hit.
func (s *persistentStore) touch(trackHash string) error {
	_, err := s.db.Exec(`UPDATE verified_mappings SET last_used_at = ? WHERE track_hash = ?`, time.Now().UTC(), trackHash)
	if err != nil {
		return fmt.Errorf("%w: touching %s: %v", ErrStoreUnavailable, trackHash, err)
	}
	return nil
}

// delete removes the row for trackHash.
func (s *persistentStore) delete(trackHash string) error {
	_, err := s.db.Exec(`DELETE FROM verified_mappings WHERE track_hash = ?`, trackHash)
	if err != nil {
		return fmt.Errorf("%w: deleting %s: %v", ErrStoreUnavailable, trackHash, err)
	}
	return nil
}
