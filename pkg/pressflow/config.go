package pressflow

import (
	"github.com/ghalamif/PressFlow/internal/adapters/archive"
	"github.com/ghalamif/PressFlow/internal/adapters/eventlog"
	"github.com/ghalamif/PressFlow/internal/adapters/opcua"
	"github.com/ghalamif/PressFlow/internal/app/config"
	"github.com/ghalamif/PressFlow/internal/core/convert"
	"github.com/ghalamif/PressFlow/internal/domain"
	"github.com/ghalamif/PressFlow/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	RunConfig          = config.RunConfig
	SourceConfig       = config.SourceConfig
	AcquisitionConfig  = config.AcquisitionConfig
	SegmentationConfig = config.SegmentationConfig
	StoreConfig        = config.StoreConfig
	StatusConfig       = config.StatusConfig
	SpoolConfig        = config.SpoolConfig
	MetricsConfig      = config.MetricsConfig
	// Policy controls polling cadence and ingestion fan-out.
	Policy = ports.Policy
	// SensorConfig describes one acquisition channel.
	SensorConfig = domain.SensorConfig
	// DisplacementCalibration holds the stroke transducer constants.
	DisplacementCalibration = convert.DisplacementCalibration
	EventLogConfig          = eventlog.Config
	OPCUAConfig             = opcua.Config
	ArchiveConfig           = archive.Config
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// ParseConfig reads YAML from memory.
func ParseConfig(raw []byte) (*Config, error) {
	return config.Parse(raw)
}
