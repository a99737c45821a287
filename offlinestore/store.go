// Package offlinestore owns the embedded analytical database file holding
// the HOT/COLD recording tables and their indices. All query operations are
// read-only; writes happen only at build time via Ingest.
package offlinestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sort"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/nerveband/amp-resolver/logging"
	"github.com/nerveband/amp-resolver/textpipeline"
)

// DefaultRowLimit is the row_limit default per spec.md §4.B.
const DefaultRowLimit = 10

// HighAccuracyRowLimit is used when the resolver is in high-accuracy mode.
const HighAccuracyRowLimit = 20

// AlbumHintRowLimit is used whenever an album hint is present.
const AlbumHintRowLimit = 100

// hotPercentile is the fraction of (by score) rows that fall into HOT.
const hotPercentile = 0.15

// Store wraps the embedded DuckDB connection and its prepared cascade
// statements. The DB connection is confined to this owner: callers never
// receive the raw *sql.DB.
type Store struct {
	db     *sql.DB
	logger logging.Logger

	stmts map[stmtKey]*sql.Stmt
}

type stmtKey struct {
	table      Table
	level      CascadeLevel
	withAlbum  bool
}

// Open opens an existing database file at path, verifies its schema
// version, and prepares the cascade query surface. Callers get ErrMissingDB,
// ErrCorruptDB, or ErrVersionMismatch as typed failures.
func Open(path string, logger logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.Nop
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingDB, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptDB, path, err)
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrCorruptDB, path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: pinging %s: %v", ErrCorruptDB, path, err)
	}

	s := &Store{db: db, logger: logger, stmts: make(map[stmtKey]*sql.Stmt)}

	ctx := context.Background()
	if err := s.checkVersion(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if err := s.prepareQueries(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// OpenForBuild opens (creating if necessary) a fresh database file for
// ingestion, bypassing the version check since the schema does not exist
// yet.
func OpenForBuild(path string, logger logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.Nop
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrCorruptDB, path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: pinging %s: %v", ErrCorruptDB, path, err)
	}

	s := &Store{db: db, logger: logger, stmts: make(map[stmtKey]*sql.Stmt)}
	if err := s.createSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the prepared statements and the underlying connection.
func (s *Store) Close() error {
	for _, stmt := range s.stmts {
		stmt.Close()
	}
	return s.db.Close()
}

// prepareQueries binds one parameterized statement per (table, cascade
// level, album-predicate) combination: 2 tables * 4 levels * 2 (with/without
// album predicate) = 16 prepared statements.
func (s *Store) prepareQueries(ctx context.Context) error {
	for _, table := range []Table{TableHot, TableCold} {
		for level := LevelExact; level <= LevelReverseContains; level++ {
			for _, withAlbum := range []bool{false, true} {
				query := buildCascadeQuery(table, level, withAlbum)
				stmt, err := s.db.PrepareContext(ctx, query)
				if err != nil {
					return fmt.Errorf("%w: preparing %s/%s (album=%v): %v", ErrStoreQuery, table, level, withAlbum, err)
				}
				s.stmts[stmtKey{table, level, withAlbum}] = stmt
			}
		}
	}
	return nil
}

// buildCascadeQuery constructs the SQL text for one cascade level. The
// ORDER BY clause is fixed: artist-hint exact match first, then score ASC.
// When an album predicate is present a boosted ordering key dominates
// score, per spec.md §4.C "SQL-level album boost".
func buildCascadeQuery(table Table, level CascadeLevel, withAlbum bool) string {
	var titlePredicate string
	switch level {
	case LevelExact:
		titlePredicate = "recording_name_clean = ?"
	case LevelPrefix:
		titlePredicate = "recording_name_clean LIKE ? || '%'"
	case LevelContains:
		titlePredicate = "recording_name_clean LIKE '%' || ? || '%'"
	case LevelReverseContains:
		titlePredicate = "? LIKE '%' || recording_name_clean || '%'"
	}

	albumPredicate := ""
	albumOrderKey := "0"
	if withAlbum {
		albumPredicate = " AND release_name_clean LIKE '%' || ? || '%'"
		albumOrderKey = "CASE WHEN release_name_clean LIKE '%' || ? || '%' THEN 1000000000 ELSE 0 END"
	}

	query := fmt.Sprintf(`
		SELECT recording_id, recording_name, recording_name_clean,
		       artist_credit_name, artist_credit_name_clean,
		       release_name, release_name_clean, score, release_type
		FROM (
			SELECT *, ROW_NUMBER() OVER (
				PARTITION BY artist_credit_name
				ORDER BY
					CASE WHEN lower(artist_credit_name_clean) = lower(?) THEN 0 ELSE 1 END,
					%s DESC,
					score ASC
			) AS rn
			FROM %s
			WHERE %s%s
		) ranked
		WHERE rn = 1
		ORDER BY
			CASE WHEN lower(artist_credit_name_clean) = lower(?) THEN 0 ELSE 1 END,
			%s DESC,
			score ASC
		LIMIT ?
	`, albumOrderKey, table, titlePredicate, albumPredicate, albumOrderKey)

	return query
}

// Search executes the chosen prepared statement for (table, level),
// returning at most rowLimit rows, each distinct by artist credit, ordered
// by artist-hint-exact-match first then score ascending.
func (s *Store) Search(ctx context.Context, table Table, level CascadeLevel, cleanTitle, artistHintClean, albumHintClean string, rowLimit int) ([]Row, error) {
	withAlbum := albumHintClean != ""
	stmt, ok := s.stmts[stmtKey{table, level, withAlbum}]
	if !ok {
		return nil, fmt.Errorf("%w: no prepared statement for %s/%s (album=%v)", ErrStoreQuery, table, level, withAlbum)
	}

	// Positional placeholders must be supplied in the exact left-to-right
	// order they appear in the rendered SQL: the inner ORDER BY (inside the
	// window function's OVER clause) is emitted before the WHERE clause,
	// which is emitted before the outer ORDER BY.
	args := make([]any, 0, 7)
	args = append(args, artistHintClean) // inner ORDER BY artist-hint-exact
	if withAlbum {
		args = append(args, albumHintClean) // inner album order key
	}
	args = append(args, cleanTitle) // title predicate
	if withAlbum {
		args = append(args, albumHintClean) // album predicate
	}
	args = append(args, artistHintClean) // outer ORDER BY artist-hint-exact
	if withAlbum {
		args = append(args, albumHintClean) // outer album order key
	}
	args = append(args, rowLimit)

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreQuery, err)
	}
	defer rows.Close()

	var results []Row
	for rows.Next() {
		var r Row
		var releaseType sql.NullString
		if err := rows.Scan(
			&r.RecordingID, &r.RecordingName, &r.RecordingNameClean,
			&r.ArtistCreditName, &r.ArtistCreditNameClean,
			&r.ReleaseName, &r.ReleaseNameClean, &r.Score, &releaseType,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning row: %v", ErrStoreQuery, err)
		}
		r.ReleaseType = ReleaseType(releaseType.String)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreQuery, err)
	}
	return results, nil
}

// TitleCandidateCount returns the number of distinct artist credits sharing
// this cleaned title across HOT ∪ COLD, used by the edge-case policies
// (is_common_title).
func (s *Store) TitleCandidateCount(ctx context.Context, cleanTitle string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT candidate_count FROM title_candidate_counts WHERE recording_name_clean = ?`, cleanTitle).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreQuery, err)
	}
	return count, nil
}

// RecordingsByReleaseClean returns every HOT∪COLD row whose cleaned release
// name matches releaseNameClean, for the Session Aligner's modal-artist
// query (spec.md §4.F).
func (s *Store) RecordingsByReleaseClean(ctx context.Context, releaseNameClean string) ([]Row, error) {
	var results []Row
	for _, table := range []Table{TableHot, TableCold} {
		rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
			SELECT recording_id, recording_name, recording_name_clean,
			       artist_credit_name, artist_credit_name_clean,
			       release_name, release_name_clean, score, release_type
			FROM %s WHERE release_name_clean = ?`, table), releaseNameClean)
		if err != nil {
			return nil, fmt.Errorf("%w: querying %s by release: %v", ErrStoreQuery, table, err)
		}
		for rows.Next() {
			var r Row
			var releaseType sql.NullString
			if err := rows.Scan(
				&r.RecordingID, &r.RecordingName, &r.RecordingNameClean,
				&r.ArtistCreditName, &r.ArtistCreditNameClean,
				&r.ReleaseName, &r.ReleaseNameClean, &r.Score, &releaseType,
			); err != nil {
				rows.Close()
				return nil, fmt.Errorf("%w: scanning row: %v", ErrStoreQuery, err)
			}
			r.ReleaseType = ReleaseType(releaseType.String)
			results = append(results, r)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreQuery, err)
		}
	}
	return results, nil
}

// SourceRecord is one row of the already-decompressed MusicBrainz ingestion
// CSV (spec.md §6). Decompression/decoding of the zstd tar archive is an
// external collaborator's responsibility; Ingest only consumes parsed rows.
type SourceRecord struct {
	RecordingID      string
	RecordingName    string
	ArtistCreditName string
	ReleaseName      string
	Score            int64
}

// Ingest computes the HOT/COLD partition (15th-percentile threshold over
// score) and loads all rows, precomputing *_clean columns via
// textpipeline.CleanConservative and the title_candidate_counts helper
// table. Invariant: every row ends up in exactly one of HOT or COLD, and
// max(HOT.score) <= min(COLD.score).
func (s *Store) Ingest(ctx context.Context, records []SourceRecord) error {
	if len(records) == 0 {
		return nil
	}

	sorted := append([]SourceRecord(nil), records...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Score < sorted[j].Score })

	thresholdIdx := int(float64(len(sorted)-1) * hotPercentile)
	threshold := sorted[thresholdIdx].Score

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning ingest transaction: %v", ErrStoreQuery, err)
	}
	defer tx.Rollback()

	insertHot, err := tx.PrepareContext(ctx, insertStatement(TableHot))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreQuery, err)
	}
	defer insertHot.Close()

	insertCold, err := tx.PrepareContext(ctx, insertStatement(TableCold))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreQuery, err)
	}
	defer insertCold.Close()

	titleCounts := make(map[string]map[string]struct{})
	hotCount := 0

	for _, rec := range records {
		recordingClean := textpipeline.CleanConservative(rec.RecordingName)
		artistClean := textpipeline.CleanConservative(rec.ArtistCreditName)
		releaseClean := textpipeline.CleanConservative(rec.ReleaseName)

		stmt := insertCold
		if rec.Score <= threshold {
			stmt = insertHot
			hotCount++
		}

		if _, err := stmt.ExecContext(ctx,
			rec.RecordingID, rec.RecordingName, recordingClean,
			rec.ArtistCreditName, artistClean,
			rec.ReleaseName, releaseClean, rec.Score, nil,
		); err != nil {
			return fmt.Errorf("%w: inserting recording %s: %v", ErrStoreQuery, rec.RecordingID, err)
		}

		artists, ok := titleCounts[recordingClean]
		if !ok {
			artists = make(map[string]struct{})
			titleCounts[recordingClean] = artists
		}
		artists[artistClean] = struct{}{}
	}

	countStmt, err := tx.PrepareContext(ctx, `INSERT INTO title_candidate_counts (recording_name_clean, candidate_count) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreQuery, err)
	}
	defer countStmt.Close()

	for title, artists := range titleCounts {
		if _, err := countStmt.ExecContext(ctx, title, len(artists)); err != nil {
			return fmt.Errorf("%w: recording title_candidate_count for %q: %v", ErrStoreQuery, title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing ingest: %v", ErrStoreQuery, err)
	}

	s.logger.Printf("ingested %d recordings (%d HOT, threshold score=%d)", len(records), hotCount, threshold)
	return nil
}

func insertStatement(table Table) string {
	return fmt.Sprintf(`INSERT INTO %s (
		recording_id, recording_name, recording_name_clean,
		artist_credit_name, artist_credit_name_clean,
		release_name, release_name_clean, score, release_type
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, strings.TrimSpace(string(table)))
}
