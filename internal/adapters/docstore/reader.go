package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ghalamif/PressFlow/internal/domain"
	"github.com/ghalamif/PressFlow/internal/ports"
)

// LatestRaw returns the raw sample with the highest sequence number.
func (s *Store) LatestRaw(ctx context.Context, collection string) (domain.RawSample, bool, error) {
	if err := s.EnsureCollection(ctx, collection); err != nil {
		return domain.RawSample{}, false, err
	}
	table, _ := quoteIdent(collection)

	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT doc FROM "+table+" ORDER BY seq DESC LIMIT 1").Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RawSample{}, false, nil
	}
	if err != nil {
		return domain.RawSample{}, false, err
	}
	doc, err := decodeDoc(raw)
	if err != nil {
		return domain.RawSample{}, false, err
	}
	sample, err := domain.RawSampleFromDocument(doc, nil)
	if err != nil {
		return domain.RawSample{}, false, err
	}
	return sample, true, nil
}

// MaxSeq returns the highest sort key stored in collection: the sequence
// number for sample families, the shot number for shot metadata.
func (s *Store) MaxSeq(ctx context.Context, collection string) (uint64, bool, error) {
	if err := s.EnsureCollection(ctx, collection); err != nil {
		return 0, false, err
	}
	table, _ := quoteIdent(collection)

	var top sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(seq) FROM "+table).Scan(&top); err != nil {
		return 0, false, err
	}
	if !top.Valid {
		return 0, false, nil
	}
	return uint64(top.Int64), true, nil
}

// CountRaw returns the number of stored raw samples.
func (s *Store) CountRaw(ctx context.Context, collection string) (uint64, error) {
	table, err := quoteIdent(collection)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// IterateRaw streams raw samples with from <= seq < to in sequence order.
func (s *Store) IterateRaw(ctx context.Context, collection string, channels []string, from, to uint64, fn func(domain.RawSample) error) error {
	table, err := quoteIdent(collection)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("SELECT doc FROM %s WHERE seq >= %s AND seq < %s ORDER BY seq",
		table, s.dialect.Placeholder(1), s.dialect.Placeholder(2))
	rows, err := s.db.QueryContext(ctx, query, int64(from), int64(to))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return err
		}
		doc, err := decodeDoc(raw)
		if err != nil {
			return err
		}
		sample, err := domain.RawSampleFromDocument(doc, channels)
		if err != nil {
			return err
		}
		if err := fn(sample); err != nil {
			return err
		}
	}
	return rows.Err()
}

func decodeDoc(raw string) (domain.Document, error) {
	var doc domain.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("corrupt document: %w", err)
	}
	return doc, nil
}

var _ ports.RawReader = (*Store)(nil)
