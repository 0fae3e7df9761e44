package shot

import (
	"github.com/ghalamif/PressFlow/internal/domain"
)

// Detector drives a Strategy over ordered samples and assembles shots. It is
// not safe for concurrent use; one Detector belongs to one run.
type Detector struct {
	strategy Strategy
	channel  string

	shotNumber uint64
	seqByShot  uint64
	open       *domain.Shot

	discarded int
	missing   int
}

// NewDetector watches channel (the displacement or pulse sensor id).
func NewDetector(strategy Strategy, channel string) *Detector {
	return &Detector{strategy: strategy, channel: channel}
}

// Resume continues shot numbering after lastShot.
func (d *Detector) Resume(lastShot uint64) { d.shotNumber = lastShot }

// Feed consumes samples in order and returns the shots whose cut-out closed.
func (d *Detector) Feed(samples []domain.RawSample) []domain.Shot {
	var done []domain.Shot
	for i := range samples {
		if shot, ok := d.consume(samples[i]); ok {
			done = append(done, shot)
		}
	}
	return done
}

func (d *Detector) consume(s domain.RawSample) (domain.Shot, bool) {
	v, ok := s.Values[d.channel]
	if !ok {
		d.missing++
		return domain.Shot{}, false
	}

	tr := d.strategy.Consume(v)
	if tr.Start {
		d.shotNumber++
		d.seqByShot = 0
		d.open = &domain.Shot{Summary: domain.ShotSummary{
			ShotNumber:     d.shotNumber,
			StartTimestamp: s.Timestamp,
			EndTimestamp:   s.Timestamp,
		}}
	}

	if tr.CutOut && d.open != nil {
		d.open.Samples = append(d.open.Samples, domain.CutOutSample{
			RawSample:  s,
			ShotNumber: d.shotNumber,
			SeqByShot:  d.seqByShot,
		})
		d.open.Summary.EndTimestamp = s.Timestamp
		d.seqByShot++
		return domain.Shot{}, false
	}

	if tr.CutOutEnd {
		return d.close()
	}
	if !tr.CutOut {
		d.discarded++
	}
	return domain.Shot{}, false
}

func (d *Detector) close() (domain.Shot, bool) {
	if d.open == nil {
		return domain.Shot{}, false
	}
	shot := *d.open
	shot.Summary.SampleCount = len(shot.Samples)
	d.open = nil
	return shot, true
}

// Finish closes a cut-out still open when the run ends.
func (d *Detector) Finish() (domain.Shot, bool) {
	shot, ok := d.close()
	d.strategy.Reset()
	return shot, ok
}

// ShotCount is the number of shots started so far.
func (d *Detector) ShotCount() uint64 { return d.shotNumber }

// Discarded counts samples not attributed to any cut-out.
func (d *Detector) Discarded() int { return d.discarded }

// Missing counts samples lacking the watched channel.
func (d *Detector) Missing() int { return d.missing }
