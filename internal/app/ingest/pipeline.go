// Package ingest fans result batches out to a fixed pool of store writers.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ghalamif/PressFlow/internal/domain"
	"github.com/ghalamif/PressFlow/internal/ports"
)

const (
	DefaultWorkers     = 4
	DefaultChunkSize   = 5000
	DefaultMaxInFlight = 1
)

// Config sizes the worker pool.
type Config struct {
	Workers     int
	ChunkSize   int
	MaxInFlight int
}

func (c *Config) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = DefaultMaxInFlight
	}
}

// Job is a list of documents destined for one collection.
type Job struct {
	Collection string
	Docs       []domain.Document
}

type item struct {
	collection string
	doc        domain.Document
}

// Pipeline dispatches batches without blocking the caller. Before a new batch
// is dispatched, older batches are joined until fewer than MaxInFlight remain,
// so at most Workers*MaxInFlight store connections are open at once.
type Pipeline struct {
	cfg   Config
	open  ports.StoreOpener
	spool ports.Spool
	obs   ports.Observability

	mu       sync.Mutex
	inflight []*Batch
	joined   ports.BulkResult
	nextID   uint64
	busy     atomic.Int64
}

// New builds a pipeline. spool may be nil.
func New(cfg Config, open ports.StoreOpener, spool ports.Spool, obs ports.Observability) (*Pipeline, error) {
	if open == nil {
		return nil, fmt.Errorf("store opener is required")
	}
	if obs == nil {
		return nil, fmt.Errorf("observability is required")
	}
	cfg.applyDefaults()
	return &Pipeline{cfg: cfg, open: open, spool: spool, obs: obs}, nil
}

// Config returns the effective configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Dispatch partitions jobs across the worker pool and returns immediately
// with a handle on the batch. Writes are not cancelled by ctx.
func (p *Pipeline) Dispatch(ctx context.Context, jobs ...Job) *Batch {
	p.joinOlder()

	var items []item
	for _, j := range jobs {
		for _, d := range j.Docs {
			items = append(items, item{collection: j.Collection, doc: d})
		}
	}

	p.mu.Lock()
	p.nextID++
	b := &Batch{ID: p.nextID, Size: len(items)}
	p.mu.Unlock()

	wctx := context.WithoutCancel(ctx)
	for w, bounds := range Partition(len(items), p.cfg.Workers) {
		if bounds[0] == bounds[1] {
			continue
		}
		h := &Handle{Worker: w, Lo: bounds[0], Hi: bounds[1], done: make(chan struct{})}
		b.handles = append(b.handles, h)
		go p.runWorker(wctx, b.ID, items[bounds[0]:bounds[1]], h)
	}

	p.mu.Lock()
	p.inflight = append(p.inflight, b)
	p.mu.Unlock()

	p.obs.LogInfo("bulk_batch_dispatched",
		ports.Field{Key: "batch", Value: b.ID},
		ports.Field{Key: "documents", Value: b.Size},
		ports.Field{Key: "workers", Value: len(b.handles)})
	return b
}

// InFlight is the number of dispatched batches not yet joined.
func (p *Pipeline) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inflight)
}

// Drain joins every in-flight batch and returns the result of every batch
// dispatched since the previous Drain, including those already joined by
// Dispatch.
func (p *Pipeline) Drain() ports.BulkResult {
	for {
		b := p.popOldest(0)
		if b == nil {
			break
		}
		p.record(b.Wait())
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	total := p.joined
	p.joined = ports.BulkResult{}
	return total
}

func (p *Pipeline) joinOlder() {
	for {
		b := p.popOldest(p.cfg.MaxInFlight - 1)
		if b == nil {
			return
		}
		p.record(b.Wait())
	}
}

func (p *Pipeline) record(res ports.BulkResult) {
	p.mu.Lock()
	p.joined.Add(res)
	p.mu.Unlock()
}

// popOldest removes the oldest batch while more than keep are in flight.
func (p *Pipeline) popOldest(keep int) *Batch {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.inflight) <= keep {
		return nil
	}
	b := p.inflight[0]
	p.inflight = p.inflight[1:]
	return b
}

func (p *Pipeline) runWorker(ctx context.Context, batchID uint64, items []item, h *Handle) {
	defer close(h.done)
	p.obs.SetGauge("pressflow_ingest_workers_busy", float64(p.busy.Add(1)))
	defer func() {
		p.obs.SetGauge("pressflow_ingest_workers_busy", float64(p.busy.Add(-1)))
	}()

	start := time.Now()
	store, err := p.open(ctx)
	if err != nil {
		h.err = err
		h.result.Failed = len(items)
		p.obs.LogError("store_open_failed", err,
			ports.Field{Key: "batch", Value: batchID},
			ports.Field{Key: "worker", Value: h.Worker})
		p.obs.IncCounter("pressflow_documents_failed_total", float64(len(items)))
		return
	}
	defer func() {
		if err := store.Close(); err != nil {
			p.obs.LogError("store_close_failed", err, ports.Field{Key: "worker", Value: h.Worker})
		}
	}()

	for _, c := range chunk(items, p.cfg.ChunkSize) {
		res, err := store.InsertChunk(ctx, c.collection, c.docs, func(doc domain.Document, err error) {
			p.deadLetter(c.collection, doc, err)
		})
		if err != nil {
			unattributed := len(c.docs) - res.Inserted - res.Failed
			res.Failed += unattributed
			p.obs.LogError("bulk_chunk_failed", err,
				ports.Field{Key: "collection", Value: c.collection},
				ports.Field{Key: "documents", Value: len(c.docs)})
		}
		h.result.Add(res)
	}

	p.obs.ObserveLatency("pressflow_bulk_insert_seconds", time.Since(start).Seconds())
	p.obs.IncCounter("pressflow_documents_inserted_total", float64(h.result.Inserted))
	if h.result.Failed > 0 {
		p.obs.IncCounter("pressflow_documents_failed_total", float64(h.result.Failed))
		p.obs.LogWarn("bulk_worker_partial_failure",
			ports.Field{Key: "batch", Value: batchID},
			ports.Field{Key: "worker", Value: h.Worker},
			ports.Field{Key: "failed", Value: h.result.Failed})
	}
}

func (p *Pipeline) deadLetter(collection string, doc domain.Document, err error) {
	p.obs.RecordDLQ(collection, doc, err)
	if p.spool == nil {
		return
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if _, serr := p.spool.Append(&ports.SpoolEntry{Collection: collection, Error: msg, Doc: doc}); serr != nil {
		p.obs.LogError("spool_append_failed", serr, ports.Field{Key: "collection", Value: collection})
	}
}

type docChunk struct {
	collection string
	docs       []domain.Document
}

// chunk groups consecutive items of the same collection into chunks of at
// most size documents, preserving order.
func chunk(items []item, size int) []docChunk {
	var out []docChunk
	for _, it := range items {
		n := len(out)
		if n == 0 || out[n-1].collection != it.collection || len(out[n-1].docs) >= size {
			out = append(out, docChunk{collection: it.collection})
			n++
		}
		out[n-1].docs = append(out[n-1].docs, it.doc)
	}
	return out
}
