// Package metadata derives the cycle rate of detected shots and filters
// shots whose cut-out is implausibly long.
package metadata

import (
	"math"

	"github.com/ghalamif/PressFlow/internal/domain"
)

// DefaultMinSPM is the slowest cycle rate considered a real production shot.
const DefaultMinSPM = 15.0

// Config parameterises derivation.
type Config struct {
	MinSPM            float64
	SamplingFrequency float64
}

// MaxSamples is the ceiling above which a shot is excluded:
// floor(60/MinSPM) seconds of samples.
func (c Config) MaxSamples() int {
	return int(math.Floor(60/c.MinSPM) * c.SamplingFrequency)
}

// SPM computes shots per minute between two start timestamps, rounded to two
// decimals.
func SPM(start, next float64) float64 {
	return math.Round(60/(next-start)*100) / 100
}

// Derive fills SPM and Excluded for an ordered, complete list of shots. The
// last shot never gets a rate.
func Derive(shots []domain.ShotSummary, cfg Config) []domain.ShotSummary {
	out := make([]domain.ShotSummary, len(shots))
	copy(out, shots)
	for i := range out {
		var next *domain.ShotSummary
		if i+1 < len(out) {
			next = &out[i+1]
		}
		apply(&out[i], next, cfg)
	}
	return out
}

func apply(cur, next *domain.ShotSummary, cfg Config) {
	cur.SPM = nil
	if next != nil && next.StartTimestamp > cur.StartTimestamp {
		spm := SPM(cur.StartTimestamp, next.StartTimestamp)
		if spm >= cfg.MinSPM {
			cur.SPM = &spm
		}
	}
	cur.Excluded = cur.SampleCount > cfg.MaxSamples()
}
