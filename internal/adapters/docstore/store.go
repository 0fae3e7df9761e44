// Package docstore persists JSON documents into per-run SQL tables.
package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/ghalamif/PressFlow/internal/domain"
	"github.com/ghalamif/PressFlow/internal/ports"
)

// Store is a single-connection document store.
type Store struct {
	db      *sql.DB
	dialect Dialect
	ensured map[string]bool
}

func NewStore(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect, ensured: make(map[string]bool)}
}

// Open connects with a pool of exactly one connection.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s ping: %w", dialect.Name, err)
	}
	return NewStore(db, dialect), nil
}

// Opener returns a ports.StoreOpener that dials a fresh connection per call.
func Opener(driver, dsn string) ports.StoreOpener {
	return func(ctx context.Context) (ports.DocumentStore, error) {
		return Open(ctx, driver, dsn)
	}
}

func (s *Store) Name() string { return s.dialect.Name }

func (s *Store) Close() error { return s.db.Close() }

// EnsureCollection creates the backing table when missing.
func (s *Store) EnsureCollection(ctx context.Context, collection string) error {
	if s.ensured[collection] {
		return nil
	}
	table, err := quoteIdent(collection)
	if err != nil {
		return err
	}
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (doc_id TEXT PRIMARY KEY, seq BIGINT NOT NULL, doc %s NOT NULL)", table, s.dialect.JSONType)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create collection %s: %w", collection, err)
	}
	s.ensured[collection] = true
	return nil
}

type row struct {
	doc   domain.Document
	id    string
	seq   int64
	value string
}

// InsertChunk writes docs with a single multi-row statement. When that fails
// the rows are retried one by one so that failures are attributed to
// individual documents.
func (s *Store) InsertChunk(ctx context.Context, collection string, docs []domain.Document, onFail func(domain.Document, error)) (ports.BulkResult, error) {
	var res ports.BulkResult
	if len(docs) == 0 {
		return res, nil
	}
	if err := s.EnsureCollection(ctx, collection); err != nil {
		return res, err
	}
	table, _ := quoteIdent(collection)

	rows := make([]row, 0, len(docs))
	for _, d := range docs {
		r, err := encodeRow(d)
		if err != nil {
			res.Failed++
			fail(onFail, d, err)
			continue
		}
		rows = append(rows, r)
	}
	if len(rows) == 0 {
		return res, nil
	}

	if _, err := s.db.ExecContext(ctx, s.insertSQL(table, len(rows)), rowArgs(rows)...); err == nil {
		res.Inserted += len(rows)
		return res, nil
	}

	single := s.insertSQL(table, 1)
	for _, r := range rows {
		if _, err := s.db.ExecContext(ctx, single, r.id, r.seq, r.value); err != nil {
			res.Failed++
			fail(onFail, r.doc, err)
			continue
		}
		res.Inserted++
	}
	return res, nil
}

func (s *Store) insertSQL(table string, n int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (doc_id, seq, doc) VALUES ")
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, "(%s,%s,%s)",
			s.dialect.Placeholder(i*3+1), s.dialect.Placeholder(i*3+2), s.dialect.Placeholder(i*3+3))
	}
	b.WriteString(" ON CONFLICT (doc_id) DO NOTHING")
	return b.String()
}

func encodeRow(d domain.Document) (row, error) {
	id, ok := d["doc_id"].(string)
	if !ok || id == "" {
		return row{}, fmt.Errorf("document has no doc_id")
	}
	seq, err := sortKey(d)
	if err != nil {
		return row{}, err
	}
	b, err := json.Marshal(d)
	if err != nil {
		return row{}, fmt.Errorf("marshal document: %w", err)
	}
	return row{doc: d, id: id, seq: seq, value: string(b)}, nil
}

func rowArgs(rows []row) []any {
	args := make([]any, 0, len(rows)*3)
	for _, r := range rows {
		args = append(args, r.id, r.seq, r.value)
	}
	return args
}

// sortKey orders raw and shot documents by sequence number and metadata by
// shot number. Documents read back from the spool carry msgpack's narrowest
// integer type.
func sortKey(d domain.Document) (int64, error) {
	for _, k := range []string{"sequential_number", "shot_number"} {
		switch v := d[k].(type) {
		case uint64:
			return int64(v), nil
		case int64:
			return v, nil
		case int:
			return int64(v), nil
		case int8:
			return int64(v), nil
		case int16:
			return int64(v), nil
		case int32:
			return int64(v), nil
		case uint8:
			return int64(v), nil
		case uint16:
			return int64(v), nil
		case uint32:
			return int64(v), nil
		case float64:
			return int64(v), nil
		}
	}
	return 0, fmt.Errorf("document has no sequential_number or shot_number")
}

func fail(onFail func(domain.Document, error), d domain.Document, err error) {
	if onFail != nil {
		onFail(d, err)
	}
}

var _ ports.DocumentStore = (*Store)(nil)
