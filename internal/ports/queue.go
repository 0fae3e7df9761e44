package ports

import "time"

// FrameFile is a discovered input file waiting to be decoded.
type FrameFile struct {
	Path      string
	Timestamp float64
	Size      int64
	ModTime   time.Time
}

type FileQueue interface {
	Enqueue(f FrameFile) bool
	DequeueBatch(max int) []FrameFile
	Len() int
}
