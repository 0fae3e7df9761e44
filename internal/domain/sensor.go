package domain

import "fmt"

// SensorRole selects the physical conversion applied to a channel.
type SensorRole string

const (
	RoleLoad         SensorRole = "load"
	RoleDisplacement SensorRole = "displacement"
	RoleBolt         SensorRole = "bolt"
	RolePulse        SensorRole = "pulse"
	RoleOther        SensorRole = "other"
)

// SensorConfig is the resolved configuration of one acquisition channel.
type SensorConfig struct {
	SensorID    string     `yaml:"sensor_id"`
	Role        SensorRole `yaml:"role"`
	Slope       float64    `yaml:"slope"`
	Intercept   float64    `yaml:"intercept"`
	BaseVolt    float64    `yaml:"base_volt"`
	BaseLoad    float64    `yaml:"base_load"`
	InitialVolt float64    `yaml:"initial_volt"`
}

func (s SensorConfig) Validate() error {
	if s.SensorID == "" {
		return fmt.Errorf("sensor_id is required")
	}
	switch s.Role {
	case RoleLoad, RoleDisplacement, RolePulse, RoleOther:
	case RoleBolt:
		if s.BaseVolt == s.InitialVolt {
			return fmt.Errorf("sensor %s: base_volt must differ from initial_volt", s.SensorID)
		}
	default:
		return fmt.Errorf("sensor %s: unknown role %q", s.SensorID, s.Role)
	}
	if s.Role == RoleLoad && s.BaseVolt == 0 && s.Slope == 0 {
		return fmt.Errorf("sensor %s: load needs base_volt/base_load or slope", s.SensorID)
	}
	return nil
}
