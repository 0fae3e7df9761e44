// Package tag attaches operator tags to the samples they describe.
package tag

import (
	"fmt"
	"time"

	"github.com/ghalamif/PressFlow/internal/domain"
)

// DefaultBack is how far before its end time a tag reaches.
const DefaultBack = 120 * time.Second

type window struct {
	label string
	lo    float64
	hi    float64
}

// Window returns the inclusive interval [ended_at - back, ended_at] covered by
// a tag event.
func Window(ev domain.OperationalEvent, back time.Duration) (float64, float64, error) {
	if ev.EndedAt == nil {
		return 0, 0, fmt.Errorf("%w: event %d", domain.ErrMissingEndTime, ev.ID)
	}
	hi := domain.EpochSeconds(*ev.EndedAt)
	return hi - back.Seconds(), hi, nil
}

// Tagger holds the tag windows of a run.
type Tagger struct {
	windows []window
}

// New builds a Tagger from the tag events in the log. Other events are
// ignored.
func New(events []domain.OperationalEvent, back time.Duration) (*Tagger, error) {
	t := &Tagger{}
	for _, ev := range events {
		if ev.Type != domain.EventTag {
			continue
		}
		lo, hi, err := Window(ev, back)
		if err != nil {
			return nil, err
		}
		t.windows = append(t.windows, window{label: ev.Tag, lo: lo, hi: hi})
	}
	return t, nil
}

// Len is the number of tag windows.
func (t *Tagger) Len() int { return len(t.windows) }

// Apply sets the tag set of every sample. Samples outside all windows get an
// empty set.
func (t *Tagger) Apply(samples []domain.CutOutSample) int {
	tagged := 0
	for i := range samples {
		samples[i].Tags = samples[i].Tags[:0]
		for _, w := range t.windows {
			if w.lo <= samples[i].Timestamp && samples[i].Timestamp <= w.hi {
				samples[i].AddTag(w.label)
			}
		}
		if len(samples[i].Tags) > 0 {
			tagged++
		}
	}
	return tagged
}
