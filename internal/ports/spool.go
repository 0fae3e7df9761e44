package ports

import "github.com/ghalamif/PressFlow/internal/domain"

type SpoolEntryID uint64

// SpoolEntry is a document that failed insertion.
type SpoolEntry struct {
	Collection string          `msgpack:"collection"`
	Error      string          `msgpack:"error"`
	Doc        domain.Document `msgpack:"doc"`
}

type Spool interface {
	Append(e *SpoolEntry) (SpoolEntryID, error)
	Iterate(from SpoolEntryID, fn func(id SpoolEntryID, e *SpoolEntry) error) error
	Commit(upto SpoolEntryID) error
	Stats() SpoolStats
	Close() error
}

type SpoolStats struct {
	OldestUncommitted SpoolEntryID
	LatestAppended    SpoolEntryID
	SizeBytes         int64
}
