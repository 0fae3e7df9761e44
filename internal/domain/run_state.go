package domain

// RunState carries the sample clock and sequence counter across the files of
// one collection run. It is owned by the segmentation goroutine.
type RunState struct {
	SamplingFrequency float64

	origin  float64
	base    uint64
	next    uint64
	started bool
}

// NewRunState seeds the clock at startTimestamp with sequence number 0.
func NewRunState(samplingFrequency, startTimestamp float64) *RunState {
	return &RunState{
		SamplingFrequency: samplingFrequency,
		origin:            startTimestamp,
		started:           true,
	}
}

// ResumeRunState continues after the latest stored sample (seq, ts).
func ResumeRunState(samplingFrequency float64, lastSeq uint64, lastTimestamp float64) *RunState {
	return &RunState{
		SamplingFrequency: samplingFrequency,
		origin:            lastTimestamp + 1/samplingFrequency,
		base:              lastSeq + 1,
		next:              lastSeq + 1,
		started:           true,
	}
}

// Started reports whether the clock has been seeded.
func (r *RunState) Started() bool { return r != nil && r.started }

// Next returns the sequence number and timestamp for the next sample and
// advances the clock by one interval.
func (r *RunState) Next() (uint64, float64) {
	seq := r.next
	ts := r.origin + float64(seq-r.base)/r.SamplingFrequency
	r.next++
	return seq, ts
}

// Peek returns the sequence number and timestamp the next sample will get.
func (r *RunState) Peek() (uint64, float64) {
	return r.next, r.origin + float64(r.next-r.base)/r.SamplingFrequency
}

// Interval is the sampling period in seconds.
func (r *RunState) Interval() float64 {
	return 1 / r.SamplingFrequency
}
