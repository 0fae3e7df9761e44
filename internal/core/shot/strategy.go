// Package shot segments the continuous sample stream into press cycles.
package shot

import "fmt"

// Transition describes how one sample moved the segmentation state.
type Transition struct {
	// Start is set when a new shot begins at this sample.
	Start bool
	// End is set when the shot closed at this sample.
	End bool
	// CutOutEnd is set when the cut-out region closed at this sample.
	CutOutEnd bool
	// CutOut is set when the sample belongs to the cut-out region.
	CutOut bool
}

// Strategy decides shot boundaries from a single converted channel value.
type Strategy interface {
	Consume(v float64) Transition
	Reset()
	Name() string
}

// StrokeStrategy segments on the press ram displacement. A shot starts when
// the ram descends into [End, Start], the cut-out stops at End and the shot
// closes once the ram rises above Start+Margin.
type StrokeStrategy struct {
	Start  float64
	End    float64
	Margin float64

	inShot  bool
	cutting bool
}

func NewStrokeStrategy(start, end, margin float64) (*StrokeStrategy, error) {
	if start < end {
		return nil, fmt.Errorf("start threshold %.3f below end threshold %.3f", start, end)
	}
	if margin < 0 {
		return nil, fmt.Errorf("margin must be >= 0, got %.3f", margin)
	}
	return &StrokeStrategy{Start: start, End: end, Margin: margin}, nil
}

func (s *StrokeStrategy) Name() string { return "stroke_displacement" }

func (s *StrokeStrategy) Reset() {
	s.inShot = false
	s.cutting = false
}

func (s *StrokeStrategy) Consume(d float64) Transition {
	var tr Transition
	switch {
	case !s.inShot && s.End <= d && d <= s.Start:
		s.inShot = true
		s.cutting = true
		// The opening sample always belongs to the cut-out, even at End.
		return Transition{Start: true, CutOut: true}
	case s.inShot && d > s.Start+s.Margin:
		s.inShot = false
		tr.End = true
		if s.cutting {
			s.cutting = false
			tr.CutOutEnd = true
		}
		return tr
	}

	if s.cutting && d <= s.End {
		s.cutting = false
		tr.CutOutEnd = true
		return tr
	}
	tr.CutOut = s.cutting
	return tr
}

// PulseStrategy segments on a digital cycle pulse. The whole shot is cut out.
type PulseStrategy struct {
	Threshold float64

	inShot bool
}

func NewPulseStrategy(threshold float64) *PulseStrategy {
	return &PulseStrategy{Threshold: threshold}
}

func (p *PulseStrategy) Name() string { return "pulse" }

func (p *PulseStrategy) Reset() { p.inShot = false }

func (p *PulseStrategy) Consume(v float64) Transition {
	switch {
	case !p.inShot && v >= p.Threshold:
		p.inShot = true
		return Transition{Start: true, CutOut: true}
	case p.inShot && v < p.Threshold:
		p.inShot = false
		return Transition{End: true, CutOutEnd: true}
	default:
		return Transition{CutOut: p.inShot}
	}
}

var (
	_ Strategy = (*StrokeStrategy)(nil)
	_ Strategy = (*PulseStrategy)(nil)
)
