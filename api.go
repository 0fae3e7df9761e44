package pressflow

import (
	base "github.com/ghalamif/PressFlow/pkg/pressflow"
)

// Re-exported errors for convenience.
var (
	ErrChannelStoreClosed = base.ErrChannelStoreClosed
	ErrMalformedFrame     = base.ErrMalformedFrame
	ErrNoCollectionStart  = base.ErrNoCollectionStart
	ErrIncompleteInterval = base.ErrIncompleteInterval
	ErrMissingEndTime     = base.ErrMissingEndTime
	ErrInvalidReplayRange = base.ErrInvalidReplayRange
	ErrNoFrameFiles       = base.ErrNoFrameFiles
	ErrSourceDirMissing   = base.ErrSourceDirMissing
)

// Type aliases so consumers can import github.com/ghalamif/PressFlow directly.
type (
	Config           = base.Config
	Policy           = base.Policy
	SensorConfig     = base.SensorConfig
	StoreConfig      = base.StoreConfig
	MetricsConfig    = base.MetricsConfig
	EventLogConfig   = base.EventLogConfig
	OPCUAConfig      = base.OPCUAConfig
	ArchiveConfig    = base.ArchiveConfig
	Flow             = base.Flow
	FlowOption       = base.FlowOption
	StreamInOption   = base.StreamInOption
	StreamOutOption  = base.StreamOutOption
	Runtime          = base.Runtime
	RuntimeOption    = base.RuntimeOption
	Summary          = base.Summary
	ReplayOptions    = base.ReplayOptions
	Document         = base.Document
	Batch            = base.Batch
	BatchHandler     = base.BatchHandler
	BulkResult       = base.BulkResult
	DocumentStore    = base.DocumentStore
	StoreOpener      = base.StoreOpener
	RawReader        = base.RawReader
	EventLog         = base.EventLog
	OperationalEvent = base.OperationalEvent
	StatusSource     = base.StatusSource
	RunStatus        = base.RunStatus
	Archiver         = base.Archiver
	FileQueue        = base.FileQueue
	Spool            = base.Spool
	Observability    = base.Observability
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func ParseConfig(raw []byte) (*Config, error) {
	return base.ParseConfig(raw)
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func StreamInEventLog(l EventLog) StreamInOption {
	return base.StreamInEventLog(l)
}

func StreamInStatus(s StatusSource) StreamInOption {
	return base.StreamInStatus(s)
}

func StreamInQueue(q FileQueue) StreamInOption {
	return base.StreamInQueue(q)
}

func StreamInRawReader(r RawReader) StreamInOption {
	return base.StreamInRawReader(r)
}

func StreamInObservability(obs Observability) StreamInOption {
	return base.StreamInObservability(obs)
}

func StreamOutStore(open StoreOpener) StreamOutOption {
	return base.StreamOutStore(open)
}

func StreamOutSpool(s Spool) StreamOutOption {
	return base.StreamOutSpool(s)
}

func StreamOutArchiver(a Archiver) StreamOutOption {
	return base.StreamOutArchiver(a)
}

func StreamOutObservability(obs Observability) StreamOutOption {
	return base.StreamOutObservability(obs)
}

func StreamOutCallback(name string, fn BatchHandler) StreamOutOption {
	return base.StreamOutCallback(name, fn)
}

// Runtime and options.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithStoreOpener(open StoreOpener) RuntimeOption {
	return base.WithStoreOpener(open)
}

func WithRawReader(r RawReader) RuntimeOption {
	return base.WithRawReader(r)
}

func WithEventLog(l EventLog) RuntimeOption {
	return base.WithEventLog(l)
}

func WithStatusSource(s StatusSource) RuntimeOption {
	return base.WithStatusSource(s)
}

func WithArchiver(a Archiver) RuntimeOption {
	return base.WithArchiver(a)
}

func WithSpool(s Spool) RuntimeOption {
	return base.WithSpool(s)
}

func WithFileQueue(q FileQueue) RuntimeOption {
	return base.WithFileQueue(q)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

// Store adapters.
func NewCallbackStore(name string, fn BatchHandler) DocumentStore {
	return base.NewCallbackStore(name, fn)
}

func NewChannelStore(name string, buffer int) (DocumentStore, <-chan Batch, func()) {
	return base.NewChannelStore(name, buffer)
}

func SharedOpener(store DocumentStore) StoreOpener {
	return base.SharedOpener(store)
}
