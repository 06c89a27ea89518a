// Package cachefile implements the optional startup cache spec.md section 6
// describes: a persisted snapshot of a RepoMap, loaded only when its schema
// version and root file-list digest still match. Two backends are
// supported: a default JSON-over-gzip file and an optional SQLite-backed
// store using the embedded-storage driver mvp-joe-canopy's
// internal/store/store.go uses (github.com/mattn/go-sqlite3).
package cachefile

import (
	"compress/gzip"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	_ "github.com/mattn/go-sqlite3"

	"github.com/standardbeagle/repomap/internal/types"
)

// SchemaVersion is bumped whenever the persisted snapshot's shape changes
// incompatibly.
const SchemaVersion = 1

// Snapshot is the full persisted state of one RepoMap.
type Snapshot struct {
	SchemaVersion int                 `json:"schema_version"`
	RootDigest    string              `json:"root_digest"`
	Records       []types.FileAnalysis `json:"records"`
}

// RootDigest hashes the sorted (path, content-hash) pairs of every scanned
// file, so a startup cache is only trusted when the repository's file list
// and contents are unchanged since it was written (spec.md section 6).
func RootDigest(records []types.FileAnalysis) string {
	paths := make([]string, 0, len(records))
	byPath := make(map[string]uint64, len(records))
	for _, r := range records {
		paths = append(paths, r.Path)
		byPath[r.Path] = r.ContentHash
	}
	sort.Strings(paths)

	h := sha256.New()
	for _, p := range paths {
		fmt.Fprintf(h, "%s:%x\n", p, byPath[p])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// SaveJSON writes a gzip-compressed JSON snapshot to path.
func SaveJSON(path string, records []types.FileAnalysis) error {
	snap := Snapshot{
		SchemaVersion: SchemaVersion,
		RootDigest:    RootDigest(records),
		Records:       records,
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	defer gw.Close()

	enc := json.NewEncoder(gw)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode cache snapshot: %w", err)
	}
	return nil
}

// LoadJSON reads a gzip-compressed JSON snapshot from path. It returns
// ok=false (not an error) if the file is missing, malformed, on a different
// schema version, or its digest no longer matches currentDigest.
func LoadJSON(path string, currentDigest string) (records []types.FileAnalysis, ok bool, err error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("open cache file: %w", err)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return nil, false, nil
	}
	defer gr.Close()

	var snap Snapshot
	if err := json.NewDecoder(gr).Decode(&snap); err != nil {
		return nil, false, nil
	}
	if snap.SchemaVersion != SchemaVersion {
		return nil, false, nil
	}
	if snap.RootDigest != currentDigest {
		return nil, false, nil
	}
	return snap.Records, true, nil
}

// SQLiteStore is the optional embedded-database backend for the startup
// cache, an alternative to the default JSON+gzip file for callers who want
// queryable persisted state.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite cache: %w", err)
	}
	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

const schemaDDL = `
CREATE TABLE IF NOT EXISTS meta (
  key   TEXT PRIMARY KEY,
  value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
  path         TEXT PRIMARY KEY,
  language     TEXT NOT NULL,
  content_hash TEXT NOT NULL,
  analysis     BLOB NOT NULL
);
`

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate sqlite cache: %w", err)
	}
	return nil
}

// Save persists records and the schema-version / root-digest metadata pair
// in a single transaction.
func (s *SQLiteStore) Save(records []types.FileAnalysis) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin sqlite cache tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM files"); err != nil {
		return fmt.Errorf("clear sqlite cache: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO files(path, language, content_hash, analysis) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare sqlite cache insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		blob, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal analysis for %s: %w", r.Path, err)
		}
		if _, err := stmt.Exec(r.Path, r.Language, fmt.Sprintf("%x", r.ContentHash), blob); err != nil {
			return fmt.Errorf("insert cache row for %s: %w", r.Path, err)
		}
	}

	if _, err := tx.Exec(
		"INSERT INTO meta(key, value) VALUES ('schema_version', ?), ('root_digest', ?) "+
			"ON CONFLICT(key) DO UPDATE SET value=excluded.value",
		fmt.Sprintf("%d", SchemaVersion), RootDigest(records),
	); err != nil {
		return fmt.Errorf("write sqlite cache metadata: %w", err)
	}

	return tx.Commit()
}

// Load returns the persisted records if the stored schema version and root
// digest still match currentDigest.
func (s *SQLiteStore) Load(currentDigest string) (records []types.FileAnalysis, ok bool, err error) {
	var version, digest string
	row := s.db.QueryRow("SELECT value FROM meta WHERE key = 'schema_version'")
	if err := row.Scan(&version); err != nil {
		return nil, false, nil
	}
	if version != fmt.Sprintf("%d", SchemaVersion) {
		return nil, false, nil
	}
	row = s.db.QueryRow("SELECT value FROM meta WHERE key = 'root_digest'")
	if err := row.Scan(&digest); err != nil || digest != currentDigest {
		return nil, false, nil
	}

	rows, err := s.db.Query("SELECT analysis FROM files")
	if err != nil {
		return nil, false, fmt.Errorf("query sqlite cache: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, false, fmt.Errorf("scan sqlite cache row: %w", err)
		}
		var fa types.FileAnalysis
		if err := json.Unmarshal(blob, &fa); err != nil {
			return nil, false, fmt.Errorf("unmarshal cached analysis: %w", err)
		}
		records = append(records, fa)
	}
	return records, true, rows.Err()
}
