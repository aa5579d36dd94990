// Package records is the default structured record provider backed by
// SQLite. It implements retrieve.RecordStore.
package records

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/fixmate/kbsearch/internal/kberrors"
	"github.com/fixmate/kbsearch/internal/retrieve"
)

// recordColumns whitelists the searchable property names and their
// backing columns. Properties outside this set are rejected.
var recordColumns = map[string]string{
	"title":       "title",
	"content":     "content",
	"description": "description",
	"notes":       "notes",
	"category":    "category",
	"status":      "status",
	"url":         "url",
}

// Store is a SQLite-backed record store. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

var _ retrieve.RecordStore = (*Store)(nil)

// Open opens (or creates) a record database at path. An empty path
// opens an in-memory database for testing.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, kberrors.ConfigError(fmt.Sprintf("create record db directory %s", dir), err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, kberrors.ConfigError("open record database", err)
	}

	// Single writer prevents lock contention with modernc.org/sqlite.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, kberrors.ConfigError("set sqlite pragma", err)
		}
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, kberrors.ConfigError("initialize record schema", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id            TEXT PRIMARY KEY,
		collection    TEXT NOT NULL,
		title         TEXT NOT NULL DEFAULT '',
		content       TEXT NOT NULL DEFAULT '',
		description   TEXT NOT NULL DEFAULT '',
		notes         TEXT NOT NULL DEFAULT '',
		category      TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL DEFAULT '',
		url           TEXT NOT NULL DEFAULT '',
		last_modified TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_records_collection ON records(collection);

	CREATE TABLE IF NOT EXISTS relations (
		record_id  TEXT NOT NULL,
		relation   TEXT NOT NULL,
		related_id TEXT NOT NULL,
		PRIMARY KEY (record_id, relation, related_id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Upsert inserts or replaces records in a transaction.
func (s *Store) Upsert(ctx context.Context, recs []retrieve.Record) error {
	if len(recs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kberrors.InternalError("record store is closed", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return kberrors.InternalError("begin record transaction", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO records
		(id, collection, title, content, description, notes, category, status, url, last_modified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return kberrors.InternalError("prepare record insert", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, rec := range recs {
		if rec.ID == "" || rec.Collection == "" {
			_ = tx.Rollback()
			return kberrors.ValidationError("record id and collection are required", nil)
		}
		p := rec.Properties
		_, err := stmt.ExecContext(ctx, rec.ID, rec.Collection,
			p["title"], p["content"], p["description"], p["notes"],
			p["category"], p["status"], p["url"], rec.LastModified)
		if err != nil {
			_ = tx.Rollback()
			return kberrors.InternalError(fmt.Sprintf("insert record %s", rec.ID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return kberrors.InternalError("commit record transaction", err)
	}
	return nil
}

// Relate links two records through the named relation. Links are
// directional; store both directions for symmetric relations.
func (s *Store) Relate(ctx context.Context, recordID, relation, relatedID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kberrors.InternalError("record store is closed", nil)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO relations (record_id, relation, related_id) VALUES (?, ?, ?)`,
		recordID, relation, relatedID)
	if err != nil {
		return kberrors.InternalError("insert relation", err)
	}
	return nil
}

// Query returns records of a collection matching the filter.
// Implements retrieve.RecordStore.
func (s *Store) Query(ctx context.Context, collection string, filter retrieve.Filter) ([]retrieve.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, kberrors.InternalError("record store is closed", nil)
	}

	column, ok := recordColumns[filter.Property]
	if !ok {
		return nil, kberrors.ValidationError(
			fmt.Sprintf("unknown record property %q", filter.Property), nil)
	}

	var predicate string
	var value string
	switch filter.Op {
	case "contains":
		predicate = fmt.Sprintf("%s LIKE ? ESCAPE '\\'", column)
		value = "%" + escapeLike(filter.Value) + "%"
	case "equals":
		predicate = column + " = ?"
		value = filter.Value
	default:
		return nil, kberrors.ValidationError(
			fmt.Sprintf("unknown filter op %q", filter.Op), nil)
	}

	query := `SELECT id, collection, title, content, description, notes,
		category, status, url, last_modified
		FROM records WHERE collection = ? AND ` + predicate

	rows, err := s.db.QueryContext(ctx, query, collection, value)
	if err != nil {
		return nil, kberrors.TransientError("query records", err)
	}
	defer func() { _ = rows.Close() }()

	return scanRecords(rows)
}

// List returns all records of a collection, used when building the
// vector index from stored records.
func (s *Store) List(ctx context.Context, collection string) ([]retrieve.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, kberrors.InternalError("record store is closed", nil)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, collection, title, content, description, notes,
			category, status, url, last_modified
		FROM records WHERE collection = ?`, collection)
	if err != nil {
		return nil, kberrors.TransientError("list records", err)
	}
	defer func() { _ = rows.Close() }()

	return scanRecords(rows)
}

// GetRelated returns records linked from id through the named
// relation, one hop. Implements retrieve.RecordStore.
func (s *Store) GetRelated(ctx context.Context, id, relation string) ([]retrieve.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, kberrors.InternalError("record store is closed", nil)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.collection, r.title, r.content, r.description, r.notes,
			r.category, r.status, r.url, r.last_modified
		FROM relations l
		JOIN records r ON r.id = l.related_id
		WHERE l.record_id = ? AND l.relation = ?`, id, relation)
	if err != nil {
		return nil, kberrors.TransientError("query related records", err)
	}
	defer func() { _ = rows.Close() }()

	return scanRecords(rows)
}

// Close releases the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func scanRecords(rows *sql.Rows) ([]retrieve.Record, error) {
	var out []retrieve.Record
	for rows.Next() {
		var (
			rec          retrieve.Record
			title        string
			content      string
			description  string
			notes        string
			category     string
			status       string
			recURL       string
			lastModified sql.NullTime
		)
		if err := rows.Scan(&rec.ID, &rec.Collection, &title, &content,
			&description, &notes, &category, &status, &recURL, &lastModified); err != nil {
			return nil, kberrors.InternalError("scan record row", err)
		}

		rec.Properties = map[string]string{}
		for name, val := range map[string]string{
			"title":       title,
			"content":     content,
			"description": description,
			"notes":       notes,
			"category":    category,
			"status":      status,
			"url":         recURL,
		} {
			if val != "" {
				rec.Properties[name] = val
			}
		}
		if lastModified.Valid {
			rec.LastModified = lastModified.Time.UTC()
		} else {
			rec.LastModified = time.Time{}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, kberrors.InternalError("iterate record rows", err)
	}
	return out, nil
}

// escapeLike escapes LIKE wildcards in user-supplied values.
func escapeLike(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(v)
}
