package ports

import (
	"context"

	"github.com/ghalamif/PressFlow/internal/domain"
)

// BulkResult counts the outcome of a best-effort insert.
type BulkResult struct {
	Inserted int
	Failed   int
}

// Add accumulates another result.
func (r *BulkResult) Add(o BulkResult) {
	r.Inserted += o.Inserted
	r.Failed += o.Failed
}

// DocumentStore writes documents into named collections. A store holds one
// connection and must not be shared between ingestion workers.
type DocumentStore interface {
	// InsertChunk inserts docs and reports per-document failures through
	// onFail. The returned error is reserved for failures affecting the
	// whole chunk that were not attributed to individual documents.
	InsertChunk(ctx context.Context, collection string, docs []domain.Document, onFail func(domain.Document, error)) (BulkResult, error)
	Name() string
	Close() error
}

// StoreOpener opens a fresh store connection, one per worker.
type StoreOpener func(ctx context.Context) (DocumentStore, error)

// RawReader reads raw ingestion records back for replay and continuation.
type RawReader interface {
	LatestRaw(ctx context.Context, collection string) (domain.RawSample, bool, error)
	CountRaw(ctx context.Context, collection string) (uint64, error)
	MaxSeq(ctx context.Context, collection string) (uint64, bool, error)
	IterateRaw(ctx context.Context, collection string, channels []string, from, to uint64, fn func(domain.RawSample) error) error
}
