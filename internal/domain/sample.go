package domain

import (
	"math"
	"time"
)

// RawSample is one decoded record of the multi-channel frame stream.
// Timestamp is expressed in seconds since the Unix epoch.
type RawSample struct {
	Seq       uint64             `json:"sequential_number" msgpack:"sequential_number"`
	Timestamp float64            `json:"timestamp" msgpack:"timestamp"`
	Values    map[string]float64 `json:"values" msgpack:"values"`
}

// Time converts the sample timestamp into a time.Time.
func (s RawSample) Time() time.Time {
	return TimeFromEpoch(s.Timestamp)
}

// Clone returns a copy whose Values map can be mutated independently.
func (s RawSample) Clone() RawSample {
	out := RawSample{Seq: s.Seq, Timestamp: s.Timestamp}
	if s.Values != nil {
		out.Values = make(map[string]float64, len(s.Values))
		for k, v := range s.Values {
			out.Values[k] = v
		}
	}
	return out
}

// CutOutSample is a sample that falls inside the cut-out region of a shot.
type CutOutSample struct {
	RawSample
	ShotNumber uint64   `json:"shot_number"`
	SeqByShot  uint64   `json:"sequential_number_by_shot"`
	Tags       []string `json:"tags"`
}

// AddTag appends label unless it is already present.
func (c *CutOutSample) AddTag(label string) {
	for _, t := range c.Tags {
		if t == label {
			return
		}
	}
	c.Tags = append(c.Tags, label)
}

// ShotSummary describes one detected shot.
type ShotSummary struct {
	ShotNumber     uint64   `json:"shot_number"`
	StartTimestamp float64  `json:"timestamp"`
	EndTimestamp   float64  `json:"end_timestamp"`
	SampleCount    int      `json:"num_of_samples_in_cut_out"`
	SPM            *float64 `json:"spm"`
	Excluded       bool     `json:"-"`
}

// Shot pairs a summary with the cut-out samples that belong to it.
type Shot struct {
	Summary ShotSummary
	Samples []CutOutSample
}

// EpochSeconds converts t into float seconds since the Unix epoch.
func EpochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// TimeFromEpoch is the inverse of EpochSeconds.
func TimeFromEpoch(sec float64) time.Time {
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(math.Round(frac*1e9)))
}
