package frame

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ghalamif/PressFlow/internal/domain"
)

var testChannels = []string{"stroke", "load01", "load02"}

func TestDecodeRoundTrip(t *testing.T) {
	rows := [][]float64{
		{49.2841, 0.1239, -1.0005},
		{47.5344, 1.5, 2.25},
		{47.0, -0.0004, 9.9999},
	}
	state := domain.NewRunState(100_000, 1_600_000_000)
	dec := NewDecoder(testChannels)

	samples, trailing, err := dec.Decode(Encode(rows), state)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if trailing != 0 {
		t.Fatalf("expected no trailing bytes, got %d", trailing)
	}
	if len(samples) != len(rows) {
		t.Fatalf("expected %d samples, got %d", len(rows), len(samples))
	}
	for i, row := range rows {
		for c, ch := range testChannels {
			want := math.Round(row[c]*1000) / 1000
			if got := samples[i].Values[ch]; got != want {
				t.Fatalf("sample %d channel %s: want %v got %v", i, ch, want, got)
			}
		}
	}
}

func TestDecodeCarriesStateAcrossFiles(t *testing.T) {
	const fs = 1000.0
	state := domain.NewRunState(fs, 1_600_000_000)
	dec := NewDecoder(testChannels)

	var all []domain.RawSample
	for f := 0; f < 3; f++ {
		rows := make([][]float64, 5)
		for i := range rows {
			rows[i] = []float64{float64(f), float64(i), 0}
		}
		samples, _, err := dec.Decode(Encode(rows), state)
		if err != nil {
			t.Fatalf("decode file %d: %v", f, err)
		}
		all = append(all, samples...)
	}

	if all[0].Seq != 0 || all[0].Timestamp != 1_600_000_000 {
		t.Fatalf("unexpected first sample %+v", all[0])
	}
	for i := 1; i < len(all); i++ {
		if all[i].Seq != all[i-1].Seq+1 {
			t.Fatalf("sequence gap at %d: %d -> %d", i, all[i-1].Seq, all[i].Seq)
		}
		step := all[i].Timestamp - all[i-1].Timestamp
		if math.Abs(step-1/fs) > 1e-6 {
			t.Fatalf("timestamp step at %d is %v, want %v", i, step, 1/fs)
		}
	}
}

func TestDecodeResumedState(t *testing.T) {
	state := domain.ResumeRunState(10, 41, 100.0)
	dec := NewDecoder([]string{"stroke"})
	samples, _, err := dec.Decode(Encode([][]float64{{1}, {2}}), state)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if samples[0].Seq != 42 || math.Abs(samples[0].Timestamp-100.1) > 1e-9 {
		t.Fatalf("unexpected resumed sample %+v", samples[0])
	}
	if samples[1].Seq != 43 || math.Abs(samples[1].Timestamp-100.2) > 1e-9 {
		t.Fatalf("unexpected second sample %+v", samples[1])
	}
}

func TestDecodeDropsPartialTrailingRecord(t *testing.T) {
	state := domain.NewRunState(10, 0)
	dec := NewDecoder(testChannels)
	data := append(Encode([][]float64{{1, 2, 3}}), 0x01, 0x02, 0x03)

	samples, trailing, err := dec.Decode(data, state)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(samples) != 1 || trailing != 3 {
		t.Fatalf("expected 1 sample and 3 trailing bytes, got %d and %d", len(samples), trailing)
	}
	if seq, _ := state.Peek(); seq != 1 {
		t.Fatalf("partial record must not advance the counter, next=%d", seq)
	}
}

func TestDecodeMalformed(t *testing.T) {
	state := domain.NewRunState(10, 0)
	if _, _, err := NewDecoder(testChannels).Decode([]byte{1, 2, 3, 4}, state); !errors.Is(err, domain.ErrMalformedFrame) {
		t.Fatalf("expected ErrMalformedFrame, got %v", err)
	}
	if _, _, err := NewDecoder(nil).Decode(make([]byte, 16), state); !errors.Is(err, domain.ErrMalformedFrame) {
		t.Fatalf("expected ErrMalformedFrame for empty channel set, got %v", err)
	}
}

func TestDecodeEmptyFile(t *testing.T) {
	state := domain.NewRunState(10, 0)
	samples, _, err := NewDecoder(testChannels).Decode(nil, state)
	if err != nil || len(samples) != 0 {
		t.Fatalf("expected empty result, got %d samples err=%v", len(samples), err)
	}
}

func TestParseFileTimestamp(t *testing.T) {
	ts, err := ParseFileTimestamp("/data/press01_AD-00_20201216-080058.620753.dat", time.UTC)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := time.Date(2020, 12, 16, 8, 0, 58, 620753000, time.UTC)
	if !ts.Equal(want) {
		t.Fatalf("want %s got %s", want, ts)
	}

	for _, bad := range []string{"nounderscore.dat", "a_20201216-080058.620753.dat", "a_b_garbage.dat"} {
		if _, err := ParseFileTimestamp(bad, time.UTC); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestListFrameFilesSortsByTimestamp(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	names := []string{
		FileName("press01", "AD-00", base.Add(2*time.Second), "dat"),
		FileName("press01", "AD-00", base, "dat"),
		FileName("press01", "AD-00", base.Add(time.Second), "dat"),
		"notes.txt",
	}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte{}, 0o600); err != nil {
			t.Fatalf("write %s: %v", n, err)
		}
	}

	files, err := ListFrameFiles(dir, "dat", time.UTC)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 frame files, got %d", len(files))
	}
	if filepath.Base(files[0].Path) != names[1] || filepath.Base(files[2].Path) != names[0] {
		t.Fatalf("files not sorted by timestamp: %+v", files)
	}

	if _, err := ListFrameFiles(filepath.Join(dir, "missing"), "dat", time.UTC); !errors.Is(err, domain.ErrSourceDirMissing) {
		t.Fatalf("expected ErrSourceDirMissing, got %v", err)
	}
}
