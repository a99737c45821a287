package offlinestore

import (
	"context"
	"fmt"
)

// schemaVersion is bumped whenever the on-disk table shape changes
// incompatibly; Open() rejects databases stamped with a different version.
const schemaVersion = 1

// hotColdDDL creates the HOT and COLD recording tables plus the indices the
// cascade queries (4.C) rely on. Both tables share the same column shape;
// the split is a row partition, not a schema difference (spec.md §3).
func (s *Store) hotColdDDL() []string {
	columns := `
		recording_id              TEXT NOT NULL,
		recording_name            TEXT NOT NULL,
		recording_name_clean      TEXT NOT NULL,
		artist_credit_name        TEXT NOT NULL,
		artist_credit_name_clean  TEXT NOT NULL,
		release_name              TEXT NOT NULL,
		release_name_clean        TEXT NOT NULL,
		score                     BIGINT NOT NULL,
		release_type              TEXT
	`

	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s)`, TableHot, columns),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s)`, TableCold, columns),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_hot_recording_clean ON %s(recording_name_clean)`, TableHot),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_cold_recording_clean ON %s(recording_name_clean)`, TableCold),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_hot_artist_clean ON %s(artist_credit_name_clean)`, TableHot),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_cold_artist_clean ON %s(artist_credit_name_clean)`, TableCold),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_hot_release_clean ON %s(release_name_clean)`, TableHot),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_cold_release_clean ON %s(release_name_clean)`, TableCold),
		`CREATE TABLE IF NOT EXISTS schema_meta (version INTEGER NOT NULL)`,
		// title_candidate_count materialized helper (SPEC_FULL "Supplemented
		// features"): number of distinct artist credits sharing a cleaned
		// title across HOT ∪ COLD, refreshed at ingestion time.
		`CREATE TABLE IF NOT EXISTS title_candidate_counts (
			recording_name_clean TEXT PRIMARY KEY,
			candidate_count      BIGINT NOT NULL
		)`,
	}
}

// createSchema runs the DDL and stamps the schema version. Called only from
// Ingest/build-time paths, never at query time (the Store is read-only
// after open).
func (s *Store) createSchema(ctx context.Context) error {
	for _, stmt := range s.hotColdDDL() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrCorruptDB, stmt, err)
		}
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM schema_meta`).Scan(&count); err != nil {
		return fmt.Errorf("%w: reading schema_meta: %v", ErrCorruptDB, err)
	}
	if count == 0 {
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_meta(version) VALUES (?)`, schemaVersion); err != nil {
			return fmt.Errorf("%w: stamping schema version: %v", ErrCorruptDB, err)
		}
	}
	return nil
}

// checkVersion verifies the on-disk schema_meta matches schemaVersion.
func (s *Store) checkVersion(ctx context.Context) error {
	var version int
	err := s.db.QueryRowContext(ctx, `SELECT version FROM schema_meta LIMIT 1`).Scan(&version)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptDB, err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: on-disk version %d, expected %d", ErrVersionMismatch, version, schemaVersion)
	}
	return nil
}
