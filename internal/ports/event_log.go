package ports

import (
	"context"

	"github.com/ghalamif/PressFlow/internal/domain"
)

// EventLog reads the operational events of a run ordered by event id.
type EventLog interface {
	Events(ctx context.Context, runID string) ([]domain.OperationalEvent, error)
}

// RunStatus is the collection state published by the control layer.
type RunStatus string

const (
	StatusRunning  RunStatus = "running"
	StatusComplete RunStatus = "complete"
)

// StatusSource reports whether the control layer has finished collection.
type StatusSource interface {
	Status(ctx context.Context, runID string) (RunStatus, error)
}

// Archiver disposes of a frame file after it has been processed.
type Archiver interface {
	Archive(ctx context.Context, path string) error
}
