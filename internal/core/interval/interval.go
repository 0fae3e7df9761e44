// Package interval derives the active collection window from the operational
// event log and drops samples recorded outside it.
package interval

import (
	"fmt"
	"math"
	"time"

	"github.com/ghalamif/PressFlow/internal/domain"
)

// DefaultStopBuffer is added to the stop event so trailing samples flushed by
// the acquisition hardware are kept.
const DefaultStopBuffer = 5 * time.Second

// Window is the active collection interval in epoch seconds. End is +Inf
// while the run has not been stopped.
type Window struct {
	Start float64
	End   float64
}

// Bounded reports whether a stop event has been seen.
func (w Window) Bounded() bool { return !math.IsInf(w.End, 1) }

// Pause is a closed pause interval, inclusive on both ends.
type Pause struct {
	Start float64
	End   float64
}

// ResolveWindow returns the collection window. A run without a setup event
// cannot be processed.
func ResolveWindow(events []domain.OperationalEvent, stopBuffer time.Duration) (Window, error) {
	w := Window{End: math.Inf(1)}
	var haveStart, haveEnd bool
	for _, ev := range events {
		switch {
		case ev.Type == domain.EventSetup && !haveStart:
			w.Start = domain.EpochSeconds(ev.OccurredAt)
			haveStart = true
		case ev.Type == domain.EventStop && !haveEnd:
			w.End = domain.EpochSeconds(ev.OccurredAt.Add(stopBuffer))
			haveEnd = true
		}
	}
	if !haveStart {
		return Window{}, domain.ErrNoCollectionStart
	}
	return w, nil
}

// ResolvePauses returns every pause window. An open pause yields
// ErrIncompleteInterval together with the closed pauses seen so far.
func ResolvePauses(events []domain.OperationalEvent) ([]Pause, error) {
	var pauses []Pause
	for _, ev := range events {
		if ev.Type != domain.EventPause {
			continue
		}
		if ev.EndedAt == nil {
			return pauses, fmt.Errorf("%w: pause %d at %s", domain.ErrIncompleteInterval, ev.ID, ev.OccurredAt.Format(time.RFC3339))
		}
		pauses = append(pauses, Pause{
			Start: domain.EpochSeconds(ev.OccurredAt),
			End:   domain.EpochSeconds(*ev.EndedAt),
		})
	}
	return pauses, nil
}

// Keep reports whether a sample at ts survives the window and pauses.
func Keep(ts float64, w Window, pauses []Pause) bool {
	if ts < w.Start {
		return false
	}
	if w.Bounded() && ts > w.End {
		return false
	}
	for _, p := range pauses {
		if p.Start <= ts && ts <= p.End {
			return false
		}
	}
	return true
}

// Apply filters samples in place and returns the retained prefix.
func Apply(samples []domain.RawSample, w Window, pauses []Pause) []domain.RawSample {
	out := samples[:0]
	for _, s := range samples {
		if Keep(s.Timestamp, w, pauses) {
			out = append(out, s)
		}
	}
	return out
}
