package ports

import "time"

// Policy controls polling cadence and ingestion fan-out.
type Policy struct {
	PollInterval  time.Duration `yaml:"poll_interval"`
	SettleDelay   time.Duration `yaml:"settle_delay"`
	FilesPerBatch int           `yaml:"files_per_batch"`
	MaxQueueLen   int           `yaml:"max_queue_len"`

	Workers     int `yaml:"workers"`
	ChunkSize   int `yaml:"chunk_size"`
	MaxInFlight int `yaml:"max_in_flight"`
}
