package tag

import (
	"errors"
	"testing"
	"time"

	"github.com/ghalamif/PressFlow/internal/domain"
)

func TestTagWindowBoundaries(t *testing.T) {
	end := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	T := domain.EpochSeconds(end)
	tg, err := New([]domain.OperationalEvent{
		{ID: 7, Type: domain.EventTag, OccurredAt: end.Add(-time.Minute), EndedAt: &end, Tag: "die-change"},
	}, DefaultBack)
	if err != nil {
		t.Fatalf("new tagger: %v", err)
	}

	samples := []domain.CutOutSample{
		{RawSample: domain.RawSample{Timestamp: T - 121}},
		{RawSample: domain.RawSample{Timestamp: T - 120}},
		{RawSample: domain.RawSample{Timestamp: T - 30}},
		{RawSample: domain.RawSample{Timestamp: T}},
		{RawSample: domain.RawSample{Timestamp: T + 0.001}},
	}
	if n := tg.Apply(samples); n != 3 {
		t.Fatalf("expected 3 tagged samples, got %d", n)
	}
	want := []int{0, 1, 1, 1, 0}
	for i, s := range samples {
		if len(s.Tags) != want[i] {
			t.Fatalf("sample %d: expected %d tags, got %v", i, want[i], s.Tags)
		}
	}
	doc := samples[0].ToDocument("run")
	if tags, ok := doc["tags"].([]string); !ok || len(tags) != 0 {
		t.Fatalf("expected empty tag list in document, got %#v", doc["tags"])
	}
}

func TestOverlappingTags(t *testing.T) {
	e1 := time.Unix(1000, 0)
	e2 := time.Unix(1050, 0)
	tg, err := New([]domain.OperationalEvent{
		{ID: 1, Type: domain.EventTag, EndedAt: &e1, Tag: "noise"},
		{ID: 2, Type: domain.EventPause, EndedAt: &e2},
		{ID: 3, Type: domain.EventTag, EndedAt: &e2, Tag: "lubrication"},
		{ID: 4, Type: domain.EventTag, EndedAt: &e2, Tag: "noise"},
	}, 100*time.Second)
	if err != nil {
		t.Fatalf("new tagger: %v", err)
	}
	if tg.Len() != 3 {
		t.Fatalf("expected 3 windows, got %d", tg.Len())
	}
	samples := []domain.CutOutSample{{RawSample: domain.RawSample{Timestamp: 990}}}
	tg.Apply(samples)
	if got := samples[0].Tags; len(got) != 2 || got[0] != "noise" || got[1] != "lubrication" {
		t.Fatalf("expected ordered unique tags [noise lubrication], got %v", got)
	}
}

func TestMissingEndTime(t *testing.T) {
	_, err := New([]domain.OperationalEvent{{ID: 9, Type: domain.EventTag, Tag: "x"}}, DefaultBack)
	if !errors.Is(err, domain.ErrMissingEndTime) {
		t.Fatalf("expected ErrMissingEndTime, got %v", err)
	}
}
