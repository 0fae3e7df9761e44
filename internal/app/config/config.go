package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ghalamif/PressFlow/internal/adapters/archive"
	"github.com/ghalamif/PressFlow/internal/adapters/eventlog"
	"github.com/ghalamif/PressFlow/internal/adapters/observability"
	"github.com/ghalamif/PressFlow/internal/adapters/opcua"
	"github.com/ghalamif/PressFlow/internal/core/convert"
	"github.com/ghalamif/PressFlow/internal/core/interval"
	"github.com/ghalamif/PressFlow/internal/core/metadata"
	"github.com/ghalamif/PressFlow/internal/core/tag"
	"github.com/ghalamif/PressFlow/internal/domain"
	"github.com/ghalamif/PressFlow/internal/ports"
)

const (
	StrategyStroke = "stroke"
	StrategyPulse  = "pulse"

	StatusFromEventLog = "event_log"
	StatusFromOPCUA    = "opcua"
)

type Config struct {
	Run          RunConfig               `yaml:"run"`
	Source       SourceConfig            `yaml:"source"`
	Acquisition  AcquisitionConfig       `yaml:"acquisition"`
	Segmentation SegmentationConfig      `yaml:"segmentation"`
	Policy       ports.Policy            `yaml:"policy"`
	Store        StoreConfig             `yaml:"store"`
	EventLog     eventlog.Config         `yaml:"event_log"`
	Status       StatusConfig            `yaml:"status"`
	Archive      archive.Config          `yaml:"archive"`
	Spool        SpoolConfig             `yaml:"spool"`
	Metrics      MetricsConfig           `yaml:"metrics"`
	Log          observability.LogConfig `yaml:"log"`
}

type RunConfig struct {
	ID      string `yaml:"id"`
	Machine string `yaml:"machine"`
}

type SourceConfig struct {
	Dir       string `yaml:"dir"`
	Extension string `yaml:"extension"`
	// Timezone of the timestamps embedded in frame file names.
	Timezone string `yaml:"timezone"`
}

type AcquisitionConfig struct {
	SamplingFrequency float64                         `yaml:"sampling_frequency"`
	Sensors           []domain.SensorConfig           `yaml:"sensors"`
	Displacement      convert.DisplacementCalibration `yaml:"displacement_calibration"`
}

type SegmentationConfig struct {
	Strategy string `yaml:"strategy"`
	// Channel is the sensor the strategy reads; defaults to the first
	// displacement (stroke) or pulse (pulse) sensor.
	Channel        string        `yaml:"channel"`
	StartThreshold float64       `yaml:"start_threshold"`
	EndThreshold   float64       `yaml:"end_threshold"`
	Margin         float64       `yaml:"margin"`
	PulseThreshold float64       `yaml:"pulse_threshold"`
	MinSPM         float64       `yaml:"min_spm"`
	TagBack        time.Duration `yaml:"tag_back"`
	StopBuffer     time.Duration `yaml:"stop_buffer"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Prefix string `yaml:"prefix"`
}

type StatusConfig struct {
	Source string       `yaml:"source"`
	OPCUA  opcua.Config `yaml:"opcua"`
}

type SpoolConfig struct {
	Dir      string `yaml:"dir"`
	Disabled bool   `yaml:"disabled"`
}

type MetricsConfig struct {
	Addr     string `yaml:"addr"`
	Disabled bool   `yaml:"disabled"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Source.Extension == "" {
		c.Source.Extension = "dat"
	}
	if c.Policy.PollInterval == 0 {
		c.Policy.PollInterval = time.Second
	}
	if c.Policy.SettleDelay == 0 {
		c.Policy.SettleDelay = 3 * time.Second
	}
	if c.Policy.FilesPerBatch == 0 {
		c.Policy.FilesPerBatch = 16
	}
	if c.Policy.MaxQueueLen == 0 {
		c.Policy.MaxQueueLen = 10_000
	}
	if c.Policy.Workers == 0 {
		c.Policy.Workers = 4
	}
	if c.Policy.ChunkSize == 0 {
		c.Policy.ChunkSize = 5_000
	}
	if c.Policy.MaxInFlight == 0 {
		c.Policy.MaxInFlight = 1
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "postgres"
	}
	if c.EventLog.Driver == "" {
		c.EventLog.Driver = c.Store.Driver
	}
	if c.EventLog.DSN == "" {
		c.EventLog.DSN = c.Store.DSN
	}
	if c.EventLog.Table == "" {
		c.EventLog.Table = "operational_events"
	}
	if c.Segmentation.Strategy == "" {
		c.Segmentation.Strategy = StrategyStroke
	}
	if c.Segmentation.MinSPM == 0 {
		c.Segmentation.MinSPM = metadata.DefaultMinSPM
	}
	if c.Segmentation.TagBack == 0 {
		c.Segmentation.TagBack = tag.DefaultBack
	}
	if c.Segmentation.StopBuffer == 0 {
		c.Segmentation.StopBuffer = interval.DefaultStopBuffer
	}
	if c.Segmentation.Channel == "" {
		role := domain.RoleDisplacement
		if c.Segmentation.Strategy == StrategyPulse {
			role = domain.RolePulse
		}
		for _, s := range c.Acquisition.Sensors {
			if s.Role == role {
				c.Segmentation.Channel = s.SensorID
				break
			}
		}
	}
	if c.Status.Source == "" {
		c.Status.Source = StatusFromEventLog
	}
	if c.Spool.Dir == "" {
		c.Spool.Dir = "./data/spool"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}

	c.Acquisition.Displacement.ApplyDefaults()
	c.Archive.ApplyDefaults()
	if c.Status.Source == StatusFromOPCUA {
		c.Status.OPCUA.ApplyDefaults()
	}
}

func (c *Config) validate() error {
	if c.Run.ID == "" {
		return fmt.Errorf("run.id is required")
	}
	if c.Source.Dir == "" {
		return fmt.Errorf("source.dir is required")
	}
	if c.Acquisition.SamplingFrequency <= 0 {
		return fmt.Errorf("acquisition.sampling_frequency must be > 0")
	}
	if len(c.Acquisition.Sensors) == 0 {
		return fmt.Errorf("acquisition.sensors must list at least one channel")
	}
	seen := make(map[string]bool, len(c.Acquisition.Sensors))
	for _, s := range c.Acquisition.Sensors {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("acquisition.sensors: %w", err)
		}
		if seen[s.SensorID] {
			return fmt.Errorf("acquisition.sensors: duplicate sensor_id %q", s.SensorID)
		}
		seen[s.SensorID] = true
	}
	if c.Acquisition.Displacement.Span == 0 {
		return fmt.Errorf("acquisition.displacement_calibration.span must be non-zero")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("source.timezone: %w", err)
	}

	seg := c.Segmentation
	switch seg.Strategy {
	case StrategyStroke:
		if seg.StartThreshold < seg.EndThreshold {
			return fmt.Errorf("segmentation: start_threshold must be >= end_threshold")
		}
		if seg.Margin < 0 {
			return fmt.Errorf("segmentation: margin must be >= 0")
		}
	case StrategyPulse:
	default:
		return fmt.Errorf("segmentation.strategy %q is not one of stroke, pulse", seg.Strategy)
	}
	if seg.Channel == "" {
		return fmt.Errorf("segmentation.channel is required when no sensor has the matching role")
	}
	if !seen[seg.Channel] {
		return fmt.Errorf("segmentation.channel %q is not a configured sensor", seg.Channel)
	}
	if seg.MinSPM <= 0 {
		return fmt.Errorf("segmentation.min_spm must be > 0")
	}

	if c.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required")
	}
	switch c.Status.Source {
	case StatusFromEventLog:
	case StatusFromOPCUA:
		if err := c.Status.OPCUA.Validate(); err != nil {
			return fmt.Errorf("status.opcua: %w", err)
		}
	default:
		return fmt.Errorf("status.source %q is not one of event_log, opcua", c.Status.Source)
	}
	if err := c.Archive.Validate(); err != nil {
		return err
	}
	if c.Policy.MaxInFlight < 1 || c.Policy.Workers < 1 {
		return fmt.Errorf("policy: workers and max_in_flight must be >= 1")
	}
	return nil
}

// Channels is the frame record layout: sensor ids in configuration order.
func (c *Config) Channels() []string {
	out := make([]string, len(c.Acquisition.Sensors))
	for i, s := range c.Acquisition.Sensors {
		out[i] = s.SensorID
	}
	return out
}

// Location resolves source.timezone, defaulting to the local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Source.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Source.Timezone)
}
