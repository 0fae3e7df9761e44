// Package convert maps raw channel voltages to physical units.
package convert

import (
	"fmt"

	"github.com/ghalamif/PressFlow/internal/domain"
)

// DisplacementCalibration holds the stroke sensor constants. The defaults
// reproduce the factory calibration of the displacement transducer.
type DisplacementCalibration struct {
	FullScale float64 `yaml:"full_scale"`
	Offset    float64 `yaml:"offset"`
	Span      float64 `yaml:"span"`
}

// DefaultDisplacementCalibration is 0-70mm over a 2-10V signal.
var DefaultDisplacementCalibration = DisplacementCalibration{FullScale: 70.0, Offset: 2.0, Span: 8.0}

func (c *DisplacementCalibration) ApplyDefaults() {
	if c.FullScale == 0 && c.Offset == 0 && c.Span == 0 {
		*c = DefaultDisplacementCalibration
	}
}

// Func converts one raw value.
type Func func(v float64) float64

// Identity leaves the value untouched.
func Identity(v float64) float64 { return v }

// Load scales a load cell voltage into a load.
func Load(s domain.SensorConfig) Func {
	if s.BaseVolt == 0 {
		slope, intercept := s.Slope, s.Intercept
		return func(v float64) float64 { return slope*v + intercept }
	}
	k := s.BaseLoad / s.BaseVolt
	return func(v float64) float64 { return k * v }
}

// Bolt converts an offset-normalised bolt strain voltage.
func Bolt(s domain.SensorConfig) Func {
	baseLoad, base, initial := s.BaseLoad, s.BaseVolt, s.InitialVolt
	return func(v float64) float64 {
		return baseLoad * (v - initial) / (base - initial)
	}
}

// Displacement converts the stroke sensor voltage into millimetres.
func Displacement(c DisplacementCalibration) Func {
	return func(v float64) float64 {
		return c.FullScale - (v-c.Offset)*c.FullScale/c.Span
	}
}

// For selects the conversion for a sensor role.
func For(s domain.SensorConfig, cal DisplacementCalibration) (Func, error) {
	switch s.Role {
	case domain.RoleLoad:
		return Load(s), nil
	case domain.RoleBolt:
		return Bolt(s), nil
	case domain.RoleDisplacement:
		return Displacement(cal), nil
	case domain.RolePulse, domain.RoleOther:
		return Identity, nil
	default:
		return nil, fmt.Errorf("sensor %s: unknown role %q", s.SensorID, s.Role)
	}
}

// Converter applies per-channel conversions to whole samples.
type Converter struct {
	funcs map[string]Func
}

func NewConverter(sensors []domain.SensorConfig, cal DisplacementCalibration) (*Converter, error) {
	funcs := make(map[string]Func, len(sensors))
	for _, s := range sensors {
		fn, err := For(s, cal)
		if err != nil {
			return nil, err
		}
		funcs[s.SensorID] = fn
	}
	return &Converter{funcs: funcs}, nil
}

// Apply rewrites the values of every sample in place. Channels without a
// configured sensor are left as they are.
func (c *Converter) Apply(samples []domain.RawSample) {
	for i := range samples {
		for ch, v := range samples[i].Values {
			if fn, ok := c.funcs[ch]; ok {
				samples[i].Values[ch] = fn(v)
			}
		}
	}
}
