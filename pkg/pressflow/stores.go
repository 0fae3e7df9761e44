package pressflow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ghalamif/PressFlow/internal/domain"
)

// ErrChannelStoreClosed is returned when a channel store is written to after
// being closed.
var ErrChannelStoreClosed = errors.New("pressflow: channel store closed")

// Batch is one chunk of documents bound for a collection.
type Batch struct {
	Collection string
	Docs       []Document
}

// BatchHandler receives chunks from the ingestion workers. It may be called
// concurrently from several workers.
type BatchHandler func(Batch) error

// NewCallbackStore adapts a BatchHandler into a DocumentStore. A handler
// error marks every document of the chunk as failed.
func NewCallbackStore(name string, fn BatchHandler) DocumentStore {
	if name == "" {
		name = "callback"
	}
	return &callbackStore{name: name, fn: fn}
}

// NewChannelStore exposes chunks via a channel; it returns the store, the
// read-only channel, and a close function the caller should invoke during
// shutdown.
func NewChannelStore(name string, buffer int) (DocumentStore, <-chan Batch, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan Batch, buffer)
	s := &channelStore{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return s, ch, func() { s.close() }
}

// SharedOpener hands the same store to every worker. Stores used this way
// must be safe for concurrent use.
func SharedOpener(store DocumentStore) StoreOpener {
	return func(context.Context) (DocumentStore, error) {
		return store, nil
	}
}

type callbackStore struct {
	name string
	fn   BatchHandler
}

func (s *callbackStore) InsertChunk(_ context.Context, coll string, docs []domain.Document, onFail func(domain.Document, error)) (BulkResult, error) {
	if len(docs) == 0 {
		return BulkResult{}, nil
	}
	err := fmt.Errorf("callback store %q: nil handler", s.name)
	if s.fn != nil {
		err = s.fn(Batch{Collection: coll, Docs: docs})
	}
	if err != nil {
		return failAll(docs, err, onFail), nil
	}
	return BulkResult{Inserted: len(docs)}, nil
}

func (s *callbackStore) Name() string { return s.name }

// Close is a no-op; workers close their store after every batch.
func (s *callbackStore) Close() error { return nil }

type channelStore struct {
	name   string
	ch     chan Batch
	closed chan struct{}
	once   sync.Once
	mu     sync.RWMutex
}

func (s *channelStore) InsertChunk(ctx context.Context, coll string, docs []domain.Document, onFail func(domain.Document, error)) (BulkResult, error) {
	if len(docs) == 0 {
		return BulkResult{}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	select {
	case <-s.closed:
		return failAll(docs, ErrChannelStoreClosed, onFail), nil
	default:
	}

	select {
	case <-s.closed:
		return failAll(docs, ErrChannelStoreClosed, onFail), nil
	case <-ctx.Done():
		return failAll(docs, ctx.Err(), onFail), nil
	case s.ch <- Batch{Collection: coll, Docs: docs}:
		return BulkResult{Inserted: len(docs)}, nil
	}
}

func (s *channelStore) Name() string { return s.name }

func (s *channelStore) Close() error { return nil }

func (s *channelStore) close() {
	s.once.Do(func() {
		close(s.closed)
		s.mu.Lock()
		close(s.ch)
		s.mu.Unlock()
	})
}

func failAll(docs []domain.Document, err error, onFail func(domain.Document, error)) BulkResult {
	if onFail != nil {
		for _, d := range docs {
			onFail(d, err)
		}
	}
	return BulkResult{Failed: len(docs)}
}
