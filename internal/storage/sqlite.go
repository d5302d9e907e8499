package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding file snapshots and source collections.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "papersift.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- File snapshots ---

// ReplaceSnapshots atomically replaces the entire stored snapshot set. The
// watcher persists the full current listing after each handled poll cycle
// rather than updating rows one by one.
func (s *Store) ReplaceSnapshots(snaps []FileSnapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning replace transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM file_snapshots`); err != nil {
		return fmt.Errorf("clearing snapshots: %w", err)
	}
	for _, snap := range snaps {
		if _, err := tx.Exec(`
			INSERT INTO file_snapshots (filename, hash, mod_time, size, content) VALUES (?, ?, ?, ?, ?)`,
			snap.Filename, snap.Hash, snap.ModTime.UTC().Format(time.RFC3339Nano), snap.Size, snap.Content,
		); err != nil {
			return fmt.Errorf("inserting snapshot %s: %w", snap.Filename, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing replace: %w", err)
	}
	return nil
}

// GetSnapshot returns the snapshot for filename, or ErrNotFound.
func (s *Store) GetSnapshot(filename string) (FileSnapshot, error) {
	var snap FileSnapshot
	var modTime string
	err := s.db.QueryRow(`
		SELECT filename, hash, mod_time, size, content
		FROM file_snapshots WHERE filename = ?`, filename,
	).Scan(&snap.Filename, &snap.Hash, &modTime, &snap.Size, &snap.Content)
	if err == sql.ErrNoRows {
		return FileSnapshot{}, ErrNotFound
	}
	if err != nil {
		return FileSnapshot{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, modTime)
	if err != nil {
		return FileSnapshot{}, fmt.Errorf("parsing mod_time: %w", err)
	}
	snap.ModTime = t
	return snap, nil
}

// ListSnapshots returns all snapshots ordered by filename.
func (s *Store) ListSnapshots() ([]FileSnapshot, error) {
	rows, err := s.db.Query(`
		SELECT filename, hash, mod_time, size, content
		FROM file_snapshots ORDER BY filename ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []FileSnapshot
	for rows.Next() {
		var snap FileSnapshot
		var modTime string
		if err := rows.Scan(&snap.Filename, &snap.Hash, &modTime, &snap.Size, &snap.Content); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339Nano, modTime)
		if err != nil {
			return nil, fmt.Errorf("parsing mod_time: %w", err)
		}
		snap.ModTime = t
		results = append(results, snap)
	}
	return results, rows.Err()
}

// --- Sources ---

// AddSource appends an entry to its collection unless an equivalent entry
// already exists. URL-derived entries are equivalent on (filename, source_url);
// file-derived entries (empty source_url) on (filename, paragraphs). Returns
// whether a row was inserted. Empty ID and AddedAt are filled in.
func (s *Store) AddSource(e SourceEntry) (bool, error) {
	if e.Collection != CollectionRelevant && e.Collection != CollectionNonRelevant {
		return false, fmt.Errorf("unknown collection %q", e.Collection)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.AddedAt.IsZero() {
		e.AddedAt = time.Now().UTC()
	}
	paragraphs, err := json.Marshal(e.Paragraphs)
	if err != nil {
		return false, fmt.Errorf("encoding paragraphs: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("beginning append transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if e.SourceURL != "" {
		err = tx.QueryRow(`SELECT COUNT(*) FROM sources WHERE collection = ? AND filename = ? AND source_url = ?`,
			e.Collection, e.Filename, e.SourceURL).Scan(&exists)
	} else {
		err = tx.QueryRow(`SELECT COUNT(*) FROM sources WHERE collection = ? AND filename = ? AND source_url = '' AND paragraphs = ?`,
			e.Collection, e.Filename, string(paragraphs)).Scan(&exists)
	}
	if err != nil {
		return false, fmt.Errorf("checking for duplicate: %w", err)
	}
	if exists > 0 {
		return false, nil
	}

	if _, err := tx.Exec(`
		INSERT INTO sources (id, collection, filename, source_url, paragraphs, added_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Collection, e.Filename, e.SourceURL, string(paragraphs),
		e.AddedAt.UTC().Format(time.RFC3339),
	); err != nil {
		return false, fmt.Errorf("inserting source: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing append: %w", err)
	}
	return true, nil
}

// ListSources returns a collection's entries in insertion order. limit <= 0
// returns all entries.
func (s *Store) ListSources(collection string, limit int) ([]SourceEntry, error) {
	query := `SELECT id, collection, filename, source_url, paragraphs, added_at
		FROM sources WHERE collection = ? ORDER BY rowid ASC`
	args := []interface{}{collection}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSources(rows)
}

// RecentSources returns a collection's newest entries, most recent first.
// limit <= 0 defaults to 10.
func (s *Store) RecentSources(collection string, limit int) ([]SourceEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`
		SELECT id, collection, filename, source_url, paragraphs, added_at
		FROM sources WHERE collection = ? ORDER BY rowid DESC LIMIT ?`,
		collection, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSources(rows)
}

// SearchSources returns entries from both collections whose filename, URL, or
// paragraph text contains query, most recent first.
func (s *Store) SearchSources(query string, limit int) ([]SourceEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, collection, filename, source_url, paragraphs, added_at
		FROM sources
		WHERE filename LIKE '%' || ? || '%' OR source_url LIKE '%' || ? || '%' OR paragraphs LIKE '%' || ? || '%'
		ORDER BY rowid DESC LIMIT ?`,
		query, query, query, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSources(rows)
}

func scanSources(rows *sql.Rows) ([]SourceEntry, error) {
	var results []SourceEntry
	for rows.Next() {
		var e SourceEntry
		var paragraphs, addedAt string
		if err := rows.Scan(&e.ID, &e.Collection, &e.Filename, &e.SourceURL, &paragraphs, &addedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(paragraphs), &e.Paragraphs); err != nil {
			return nil, fmt.Errorf("decoding paragraphs for %s: %w", e.ID, err)
		}
		t, err := time.Parse(time.RFC3339, addedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing added_at for %s: %w", e.ID, err)
		}
		e.AddedAt = t
		results = append(results, e)
	}
	return results, rows.Err()
}

// ProcessedURLs returns the set of URLs already fetched and classified as
// relevant. Non-relevant fetches are intentionally retried on re-encounter.
func (s *Store) ProcessedURLs() (map[string]bool, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT source_url FROM sources
		WHERE collection = ? AND source_url != ''`, CollectionRelevant,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	processed := make(map[string]bool)
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, err
		}
		processed[url] = true
	}
	return processed, rows.Err()
}

// GetStats returns row counts for snapshots and both collections.
func (s *Store) GetStats() (Stats, error) {
	var st Stats
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM file_snapshots`).Scan(&st.Snapshots); err != nil {
		return Stats{}, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sources WHERE collection = ?`, CollectionRelevant).Scan(&st.Relevant); err != nil {
		return Stats{}, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sources WHERE collection = ?`, CollectionNonRelevant).Scan(&st.NonRelevant); err != nil {
		return Stats{}, err
	}
	return st, nil
}
