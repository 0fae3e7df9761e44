package pressflow

import (
	"github.com/ghalamif/PressFlow/internal/app/pipeline"
	"github.com/ghalamif/PressFlow/internal/domain"
	"github.com/ghalamif/PressFlow/internal/ports"
)

// Document is one record as written to the store.
type Document = domain.Document

// DocumentStore persists documents; each ingestion worker opens its own.
type DocumentStore = ports.DocumentStore

// StoreOpener opens one DocumentStore per ingestion worker.
type StoreOpener = ports.StoreOpener

// BulkResult counts inserted and failed documents.
type BulkResult = ports.BulkResult

// RawReader reads stored raw samples back for continuation and replay.
type RawReader = ports.RawReader

// EventLog yields the operational events of a run in order.
type EventLog = ports.EventLog

type OperationalEvent = domain.OperationalEvent

// StatusSource reports whether the control layer has finished collecting.
type StatusSource = ports.StatusSource

type RunStatus = ports.RunStatus

// Archiver disposes of processed frame files.
type Archiver = ports.Archiver

// FileQueue buffers discovered frame files.
type FileQueue = ports.FileQueue

type FrameFile = ports.FrameFile

// Spool keeps documents the store rejected.
type Spool = ports.Spool

type SpoolEntry = ports.SpoolEntry

// Observability emits logs and metrics.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// Summary counts what a run or replay did.
type Summary = pipeline.Summary

// ReplayOptions selects a stored sequence range to re-segment.
type ReplayOptions = pipeline.ReplayOptions

const (
	StatusRunning  = ports.StatusRunning
	StatusComplete = ports.StatusComplete
)

// Sentinel errors callers can test with errors.Is.
var (
	ErrMalformedFrame     = domain.ErrMalformedFrame
	ErrNoCollectionStart  = domain.ErrNoCollectionStart
	ErrIncompleteInterval = domain.ErrIncompleteInterval
	ErrMissingEndTime     = domain.ErrMissingEndTime
	ErrInvalidReplayRange = domain.ErrInvalidReplayRange
	ErrNoFrameFiles       = domain.ErrNoFrameFiles
	ErrSourceDirMissing   = domain.ErrSourceDirMissing
)
