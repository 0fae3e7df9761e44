package interval

import (
	"errors"
	"testing"
	"time"

	"github.com/ghalamif/PressFlow/internal/domain"
)

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return t0.Add(time.Duration(sec) * time.Second) }

func ptr(t time.Time) *time.Time { return &t }

func TestResolveWindow(t *testing.T) {
	events := []domain.OperationalEvent{
		{ID: 1, Type: domain.EventSetup, OccurredAt: at(0)},
		{ID: 2, Type: domain.EventStart, OccurredAt: at(10)},
		{ID: 3, Type: domain.EventStop, OccurredAt: at(100)},
		{ID: 4, Type: domain.EventSetup, OccurredAt: at(200)},
	}
	w, err := ResolveWindow(events, DefaultStopBuffer)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if w.Start != domain.EpochSeconds(at(0)) {
		t.Fatalf("expected first setup as start, got %v", w.Start)
	}
	if !w.Bounded() || w.End != domain.EpochSeconds(at(105)) {
		t.Fatalf("expected stop+5s as end, got %v", w.End)
	}
}

func TestResolveWindowUnbounded(t *testing.T) {
	w, err := ResolveWindow([]domain.OperationalEvent{{Type: domain.EventSetup, OccurredAt: at(0)}}, DefaultStopBuffer)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if w.Bounded() {
		t.Fatalf("expected unbounded window")
	}
}

func TestResolveWindowMissingSetup(t *testing.T) {
	_, err := ResolveWindow([]domain.OperationalEvent{{Type: domain.EventStart, OccurredAt: at(0)}}, DefaultStopBuffer)
	if !errors.Is(err, domain.ErrNoCollectionStart) {
		t.Fatalf("expected ErrNoCollectionStart, got %v", err)
	}
}

func TestResolvePausesOpen(t *testing.T) {
	events := []domain.OperationalEvent{
		{ID: 1, Type: domain.EventPause, OccurredAt: at(10), EndedAt: ptr(at(20))},
		{ID: 2, Type: domain.EventPause, OccurredAt: at(30)},
	}
	pauses, err := ResolvePauses(events)
	if !errors.Is(err, domain.ErrIncompleteInterval) {
		t.Fatalf("expected ErrIncompleteInterval, got %v", err)
	}
	if len(pauses) != 1 {
		t.Fatalf("expected the closed pause to be returned, got %d", len(pauses))
	}
}

func TestApplyDropsPausesInclusive(t *testing.T) {
	events := []domain.OperationalEvent{
		{ID: 1, Type: domain.EventSetup, OccurredAt: at(0)},
		{ID: 2, Type: domain.EventPause, OccurredAt: at(10), EndedAt: ptr(at(20))},
		{ID: 3, Type: domain.EventPause, OccurredAt: at(40), EndedAt: ptr(at(45))},
		{ID: 4, Type: domain.EventStop, OccurredAt: at(50)},
	}
	w, err := ResolveWindow(events, DefaultStopBuffer)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	pauses, err := ResolvePauses(events)
	if err != nil {
		t.Fatalf("pauses: %v", err)
	}

	var samples []domain.RawSample
	for sec := -5; sec <= 60; sec++ {
		samples = append(samples, domain.RawSample{Seq: uint64(sec + 5), Timestamp: domain.EpochSeconds(at(sec))})
	}
	out := Apply(samples, w, pauses)

	for _, s := range out {
		if s.Timestamp < w.Start || s.Timestamp > w.End {
			t.Fatalf("sample %d outside window", s.Seq)
		}
		for _, p := range pauses {
			if p.Start <= s.Timestamp && s.Timestamp <= p.End {
				t.Fatalf("sample at %v inside pause [%v,%v]", s.Timestamp, p.Start, p.End)
			}
		}
	}
	// 0..55 kept minus 10..20 (11) and 40..45 (6)
	if want := 56 - 11 - 6; len(out) != want {
		t.Fatalf("expected %d samples, got %d", want, len(out))
	}
}
