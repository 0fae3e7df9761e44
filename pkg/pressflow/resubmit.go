package pressflow

import (
	"context"
	"fmt"

	"github.com/ghalamif/PressFlow/internal/domain"
	"github.com/ghalamif/PressFlow/internal/ports"
)

// Resubmit retries every uncommitted spool entry against the store. Entries
// rejected again are appended to the spool anew; the retried range is then
// committed.
func (r *Runtime) Resubmit(ctx context.Context) (BulkResult, error) {
	if r.spool == nil {
		return BulkResult{}, fmt.Errorf("spool is disabled")
	}
	return resubmit(ctx, r.spool, r.opener, r.cfg.Policy.ChunkSize, r.obs)
}

type spooled struct {
	collection string
	docs       []domain.Document
}

func resubmit(ctx context.Context, sp ports.Spool, open ports.StoreOpener, chunkSize int, obs ports.Observability) (BulkResult, error) {
	var total BulkResult
	stats := sp.Stats()
	if stats.LatestAppended == 0 || stats.OldestUncommitted > stats.LatestAppended {
		return total, nil
	}
	if chunkSize <= 0 {
		chunkSize = 5000
	}

	var (
		groups []*spooled
		index  = make(map[string]*spooled)
		last   ports.SpoolEntryID
	)
	err := sp.Iterate(stats.OldestUncommitted, func(id ports.SpoolEntryID, e *ports.SpoolEntry) error {
		g, ok := index[e.Collection]
		if !ok {
			g = &spooled{collection: e.Collection}
			index[e.Collection] = g
			groups = append(groups, g)
		}
		g.docs = append(g.docs, e.Doc)
		last = id
		return nil
	})
	if err != nil {
		return total, fmt.Errorf("read spool: %w", err)
	}
	if last == 0 {
		return total, nil
	}

	store, err := open(ctx)
	if err != nil {
		return total, fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	var rejected []ports.SpoolEntry
	onFail := func(coll string) func(domain.Document, error) {
		return func(d domain.Document, err error) {
			msg := ""
			if err != nil {
				msg = err.Error()
			}
			rejected = append(rejected, ports.SpoolEntry{Collection: coll, Error: msg, Doc: d})
		}
	}

	for _, g := range groups {
		for lo := 0; lo < len(g.docs); lo += chunkSize {
			hi := min(lo+chunkSize, len(g.docs))
			res, err := store.InsertChunk(ctx, g.collection, g.docs[lo:hi], onFail(g.collection))
			if err != nil {
				return total, fmt.Errorf("resubmit %s: %w", g.collection, err)
			}
			total.Add(res)
		}
	}

	for i := range rejected {
		if _, err := sp.Append(&rejected[i]); err != nil {
			return total, fmt.Errorf("re-spool: %w", err)
		}
	}
	if err := sp.Commit(last); err != nil {
		return total, fmt.Errorf("commit spool: %w", err)
	}

	obs.LogInfo("spool_resubmitted",
		ports.Field{Key: "inserted", Value: total.Inserted},
		ports.Field{Key: "failed", Value: total.Failed},
		ports.Field{Key: "committed_to", Value: uint64(last)})
	return total, nil
}
