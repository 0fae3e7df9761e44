package domain

import "errors"

var (
	// ErrMalformedFrame is returned when a frame file cannot hold a single record.
	ErrMalformedFrame = errors.New("pressflow: malformed frame")
	// ErrNoCollectionStart means the event log has no setup event.
	ErrNoCollectionStart = errors.New("pressflow: no collection start event")
	// ErrIncompleteInterval means a pause has not been resumed yet.
	ErrIncompleteInterval = errors.New("pressflow: incomplete pause interval")
	// ErrMissingEndTime is returned for tag events without ended_at.
	ErrMissingEndTime = errors.New("pressflow: tag event has no end time")
	// ErrInvalidReplayRange rejects inverted or out-of-range replay bounds.
	ErrInvalidReplayRange = errors.New("pressflow: invalid replay range")
	// ErrNoFrameFiles is returned when a post-hoc run finds nothing to decode.
	ErrNoFrameFiles = errors.New("pressflow: no frame files")
	// ErrSourceDirMissing is returned when the frame directory does not exist.
	ErrSourceDirMissing = errors.New("pressflow: source directory missing")
)
