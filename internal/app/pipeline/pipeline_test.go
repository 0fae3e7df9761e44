package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ghalamif/PressFlow/internal/adapters/observability"
	"github.com/ghalamif/PressFlow/internal/adapters/queue"
	"github.com/ghalamif/PressFlow/internal/app/config"
	"github.com/ghalamif/PressFlow/internal/app/ingest"
	"github.com/ghalamif/PressFlow/internal/core/frame"
	"github.com/ghalamif/PressFlow/internal/domain"
	"github.com/ghalamif/PressFlow/internal/ports"
)

var (
	t0     = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	stroke = []float64{49.284, 47.534, 47.0, 47.1, 34.961, 30.599, 24.867, 47.100, 47.150, 47.0, 47.1, 34.961, 30.599}
)

const testConfig = `
run:
  id: r1
source:
  dir: %DIR%
  timezone: UTC
acquisition:
  sampling_frequency: 10
  sensors:
    - sensor_id: stroke
      role: other
    - sensor_id: force
      role: load
      base_volt: 10
      base_load: 100
segmentation:
  channel: stroke
  start_threshold: 47
  end_threshold: 34
  margin: 0.1
policy:
  poll_interval: 5ms
  workers: 2
store:
  dsn: memory
`

func loadConfig(t *testing.T, dir string) *config.Config {
	t.Helper()
	raw := []byte(strings.ReplaceAll(testConfig, "%DIR%", dir))
	cfg, err := config.Parse(raw)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

// writeFrames writes stroke values (force fixed at 5V) as one frame file
// starting at ts.
func writeFrames(t *testing.T, dir string, ts time.Time, values []float64) string {
	t.Helper()
	rows := make([][]float64, len(values))
	for i, v := range values {
		rows[i] = []float64{v, 5}
	}
	path := filepath.Join(dir, frame.FileName("press01", "AD-00", ts, "dat"))
	if err := os.WriteFile(path, frame.Encode(rows), 0o644); err != nil {
		t.Fatalf("write frames: %v", err)
	}
	return path
}

type memStore struct {
	mu   sync.Mutex
	docs map[string][]domain.Document
}

func (m *memStore) open(context.Context) (ports.DocumentStore, error) { return m, nil }

func (m *memStore) InsertChunk(_ context.Context, coll string, docs []domain.Document, _ func(domain.Document, error)) (ports.BulkResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docs == nil {
		m.docs = make(map[string][]domain.Document)
	}
	m.docs[coll] = append(m.docs[coll], docs...)
	return ports.BulkResult{Inserted: len(docs)}, nil
}

func (m *memStore) Name() string { return "mem" }
func (m *memStore) Close() error { return nil }

func (m *memStore) sorted(coll string) []domain.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]domain.Document(nil), m.docs[coll]...)
	key := "sequential_number"
	if len(out) > 0 {
		if _, ok := out[0][key]; !ok {
			key = "shot_number"
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i][key].(uint64) < out[j][key].(uint64) })
	return out
}

type fakeRaw struct {
	last     *domain.RawSample
	lastShot uint64
	stored   []domain.RawSample
}

func (f *fakeRaw) LatestRaw(context.Context, string) (domain.RawSample, bool, error) {
	if f.last == nil {
		return domain.RawSample{}, false, nil
	}
	return *f.last, true, nil
}

func (f *fakeRaw) CountRaw(context.Context, string) (uint64, error) {
	return uint64(len(f.stored)), nil
}

func (f *fakeRaw) MaxSeq(context.Context, string) (uint64, bool, error) {
	return f.lastShot, f.lastShot > 0, nil
}

func (f *fakeRaw) IterateRaw(_ context.Context, _ string, _ []string, from, to uint64, fn func(domain.RawSample) error) error {
	for _, s := range f.stored {
		if s.Seq >= from && s.Seq < to {
			if err := fn(s.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

type eventFunc func() []domain.OperationalEvent

func (f eventFunc) Events(context.Context, string) ([]domain.OperationalEvent, error) {
	return f(), nil
}

func setupOnly() []domain.OperationalEvent {
	return []domain.OperationalEvent{{ID: 1, Type: domain.EventSetup, OccurredAt: t0.Add(-time.Second)}}
}

type fixedStatus ports.RunStatus

func (s fixedStatus) Status(context.Context, string) (ports.RunStatus, error) {
	return ports.RunStatus(s), nil
}

type recordingArchiver struct{ paths []string }

func (a *recordingArchiver) Archive(_ context.Context, path string) error {
	a.paths = append(a.paths, path)
	return nil
}

func newRunner(t *testing.T, cfg *config.Config, store *memStore, deps Deps) *Runner {
	t.Helper()
	obs := observability.Nop{}
	p, err := ingest.New(ingest.Config{Workers: cfg.Policy.Workers, ChunkSize: 4}, store.open, nil, obs)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	deps.Ingest = p
	deps.Obs = obs
	if deps.Raw == nil {
		deps.Raw = &fakeRaw{}
	}
	if deps.Events == nil {
		deps.Events = eventFunc(setupOnly)
	}
	if deps.Status == nil {
		deps.Status = fixedStatus(ports.StatusComplete)
	}
	if deps.Queue == nil {
		deps.Queue = queue.NewMemQueue(cfg.Policy.MaxQueueLen)
	}
	deps.Now = func() time.Time { return time.Now().Add(time.Hour) }
	r, err := New(cfg, deps)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	return r
}

func TestRunSegmentsAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	first := writeFrames(t, dir, t0, stroke[:7])
	second := writeFrames(t, dir, t0.Add(700*time.Millisecond), stroke[7:])
	cfg := loadConfig(t, dir)
	store := &memStore{}
	arch := &recordingArchiver{}

	sum, err := newRunner(t, cfg, store, Deps{Archiver: arch}).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Files != 2 || sum.Samples != 13 || sum.Shots != 2 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if sum.Result.Inserted != 13+6+2 || sum.Result.Failed != 0 {
		t.Fatalf("unexpected insert result %+v", sum.Result)
	}

	raw := store.sorted("raw_r1")
	for i, d := range raw {
		if d["sequential_number"].(uint64) != uint64(i) {
			t.Fatalf("raw sequence broken at %d: %v", i, d["sequential_number"])
		}
	}
	if got := raw[12]["timestamp"].(float64); got < domain.EpochSeconds(t0)+1.2-1e-6 || got > domain.EpochSeconds(t0)+1.2+1e-6 {
		t.Fatalf("clock not carried across files, last ts %f", got)
	}

	shots := store.sorted("shots_r1")
	wantSeq := []uint64{2, 3, 4, 9, 10, 11}
	if len(shots) != len(wantSeq) {
		t.Fatalf("expected %d cut-out samples, got %d", len(wantSeq), len(shots))
	}
	for i, d := range shots {
		if d["sequential_number"].(uint64) != wantSeq[i] {
			t.Fatalf("cut-out %d: seq %v want %d", i, d["sequential_number"], wantSeq[i])
		}
	}
	if shots[3]["shot_number"].(uint64) != 2 || shots[3]["sequential_number_by_shot"].(uint64) != 0 {
		t.Fatalf("second shot numbering wrong: %v", shots[3])
	}
	if shots[0]["force"].(float64) != 50 {
		t.Fatalf("load channel not converted: %v", shots[0]["force"])
	}

	meta := store.sorted("shots_meta_r1")
	if len(meta) != 2 {
		t.Fatalf("expected 2 metadata docs, got %d", len(meta))
	}
	if spm := meta[0]["spm"].(float64); spm != 85.71 {
		t.Fatalf("expected spm 85.71, got %v", spm)
	}
	if meta[1]["spm"] != nil {
		t.Fatalf("last shot must have null spm, got %v", meta[1]["spm"])
	}

	if len(arch.paths) != 2 || arch.paths[0] != first || arch.paths[1] != second {
		t.Fatalf("unexpected archived files %v", arch.paths)
	}
}

func TestRunWaitsForOpenPause(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, t0, stroke)
	cfg := loadConfig(t, dir)

	var mu sync.Mutex
	calls := 0
	events := eventFunc(func() []domain.OperationalEvent {
		mu.Lock()
		defer mu.Unlock()
		calls++
		pause := domain.OperationalEvent{ID: 2, Type: domain.EventPause, OccurredAt: t0.Add(-500 * time.Millisecond)}
		if calls > 3 {
			end := t0.Add(-400 * time.Millisecond)
			pause.EndedAt = &end
		}
		return append(setupOnly(), pause)
	})

	store := &memStore{}
	sum, err := newRunner(t, cfg, store, Deps{Events: events}).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if calls <= 3 {
		t.Fatalf("expected event log to be polled until the pause closed, got %d calls", calls)
	}
	if sum.Files != 1 || sum.Shots != 2 {
		t.Fatalf("unexpected summary %+v", sum)
	}
}

func TestRunFatalErrors(t *testing.T) {
	t.Run("no collection start", func(t *testing.T) {
		dir := t.TempDir()
		cfg := loadConfig(t, dir)
		noSetup := eventFunc(func() []domain.OperationalEvent {
			return []domain.OperationalEvent{{ID: 1, Type: domain.EventStart, OccurredAt: t0}}
		})
		_, err := newRunner(t, cfg, &memStore{}, Deps{Events: noSetup}).Run(context.Background())
		if !errors.Is(err, domain.ErrNoCollectionStart) {
			t.Fatalf("expected ErrNoCollectionStart, got %v", err)
		}
	})
	t.Run("no frame files", func(t *testing.T) {
		cfg := loadConfig(t, t.TempDir())
		_, err := newRunner(t, cfg, &memStore{}, Deps{}).Run(context.Background())
		if !errors.Is(err, domain.ErrNoFrameFiles) {
			t.Fatalf("expected ErrNoFrameFiles, got %v", err)
		}
	})
	t.Run("missing source dir", func(t *testing.T) {
		cfg := loadConfig(t, filepath.Join(t.TempDir(), "gone"))
		_, err := newRunner(t, cfg, &memStore{}, Deps{}).Run(context.Background())
		if !errors.Is(err, domain.ErrSourceDirMissing) {
			t.Fatalf("expected ErrSourceDirMissing, got %v", err)
		}
	})
}

func TestRunFailsWhenEventLogTurnsInvalid(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, t0, stroke)
	cfg := loadConfig(t, dir)

	var mu sync.Mutex
	calls := 0
	events := eventFunc(func() []domain.OperationalEvent {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return setupOnly()
		}
		return append(setupOnly(), domain.OperationalEvent{ID: 2, Type: domain.EventTag, OccurredAt: t0, Tag: "x"})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sum, err := newRunner(t, cfg, &memStore{}, Deps{Events: events}).Run(ctx)
	if !errors.Is(err, domain.ErrMissingEndTime) {
		t.Fatalf("expected ErrMissingEndTime, got %v", err)
	}
	if ctx.Err() != nil {
		t.Fatalf("run only stopped on the deadline")
	}
	if sum.Files != 0 || sum.Shots != 0 {
		t.Fatalf("no file should be processed with an invalid event log, got %+v", sum)
	}
}

func TestRunDropsSamplesInsidePause(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, t0, stroke)
	cfg := loadConfig(t, dir)

	end := t0.Add(1250 * time.Millisecond)
	events := eventFunc(func() []domain.OperationalEvent {
		return append(setupOnly(), domain.OperationalEvent{
			ID: 2, Type: domain.EventPause, OccurredAt: t0.Add(850 * time.Millisecond), EndedAt: &end,
		})
	})

	store := &memStore{}
	sum, err := newRunner(t, cfg, store, Deps{Events: events}).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Samples != 13 || sum.Filtered != 4 || sum.Shots != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if n := len(store.sorted("raw_r1")); n != 13 {
		t.Fatalf("raw samples are stored regardless of pauses, got %d", n)
	}
	shots := store.sorted("shots_r1")
	if len(shots) != 3 {
		t.Fatalf("expected only the first cut-out, got %d samples", len(shots))
	}
	for i, d := range shots {
		if d["sequential_number"].(uint64) != uint64(2+i) || d["shot_number"].(uint64) != 1 {
			t.Fatalf("unexpected cut-out sample %v", d)
		}
	}
	meta := store.sorted("shots_meta_r1")
	if len(meta) != 1 || meta[0]["spm"] != nil {
		t.Fatalf("expected a single shot without rate, got %v", meta)
	}
}

func TestRunTagsCutOutSamples(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, t0, stroke)
	cfg := loadConfig(t, dir)

	end := t0.Add(350 * time.Millisecond)
	events := eventFunc(func() []domain.OperationalEvent {
		return append(setupOnly(), domain.OperationalEvent{
			ID: 2, Type: domain.EventTag, OccurredAt: t0, EndedAt: &end, Tag: "die_change",
		})
	})

	store := &memStore{}
	if _, err := newRunner(t, cfg, store, Deps{Events: events}).Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	shots := store.sorted("shots_r1")
	if len(shots) != 6 {
		t.Fatalf("expected 6 cut-out samples, got %d", len(shots))
	}
	for _, d := range shots {
		seq := d["sequential_number"].(uint64)
		tags := d["tags"].([]string)
		want := 0
		if seq == 2 || seq == 3 {
			want = 1
		}
		if len(tags) != want {
			t.Fatalf("seq %d: unexpected tags %v", seq, tags)
		}
		if want == 1 && tags[0] != "die_change" {
			t.Fatalf("seq %d: unexpected tag %q", seq, tags[0])
		}
	}
}

func TestRunExcludesLongShotsAndFloorsRate(t *testing.T) {
	values := []float64{49, 47.0}
	for i := 0; i < 12; i++ {
		values = append(values, 40)
	}
	values = append(values, 30, 48, 47.0, 40, 30)
	for i := 0; i < 12; i++ {
		values = append(values, 48)
	}
	values = append(values, 47.0, 30)

	dir := t.TempDir()
	writeFrames(t, dir, t0, values)
	cfg := loadConfig(t, dir)
	cfg.Segmentation.MinSPM = 60

	store := &memStore{}
	sum, err := newRunner(t, cfg, store, Deps{}).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Samples != len(values) || sum.Excluded != 1 || sum.Shots != 2 {
		t.Fatalf("unexpected summary %+v", sum)
	}

	shots := store.sorted("shots_r1")
	wantSeq := []uint64{16, 17, 31}
	if len(shots) != len(wantSeq) {
		t.Fatalf("expected %d cut-out samples, got %d", len(wantSeq), len(shots))
	}
	for i, d := range shots {
		if d["sequential_number"].(uint64) != wantSeq[i] {
			t.Fatalf("cut-out %d: seq %v want %d", i, d["sequential_number"], wantSeq[i])
		}
		if d["shot_number"].(uint64) == 1 {
			t.Fatalf("excluded shot leaked into cut-out samples: %v", d)
		}
	}

	meta := store.sorted("shots_meta_r1")
	if len(meta) != 2 || meta[0]["shot_number"].(uint64) != 2 || meta[1]["shot_number"].(uint64) != 3 {
		t.Fatalf("unexpected metadata %v", meta)
	}
	if meta[0]["spm"] != nil {
		t.Fatalf("rate below min_spm must be null, got %v", meta[0]["spm"])
	}
	if n := meta[0]["num_of_samples_in_cut_out"].(int); n != 2 {
		t.Fatalf("expected 2 samples in the kept shot, got %d", n)
	}
}

func TestRunSkipsUndecodableFile(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, t0, stroke)
	bad := filepath.Join(dir, frame.FileName("press01", "AD-00", t0.Add(-time.Second), "dat"))
	if err := os.WriteFile(bad, []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg := loadConfig(t, dir)

	sum, err := newRunner(t, cfg, &memStore{}, Deps{}).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.FailedFiles != 1 || sum.Files != 1 || sum.Shots != 2 {
		t.Fatalf("unexpected summary %+v", sum)
	}
}

func TestRunResumesAfterStoredSamples(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, t0, stroke[:7])
	writeFrames(t, dir, t0.Add(700*time.Millisecond), stroke[7:])
	cfg := loadConfig(t, dir)
	store := &memStore{}

	last := domain.RawSample{Seq: 6, Timestamp: domain.EpochSeconds(t0) + 0.6}
	raw := &fakeRaw{last: &last, lastShot: 4}
	sum, err := newRunner(t, cfg, store, Deps{Raw: raw}).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Files != 1 {
		t.Fatalf("expected the stored file to be skipped, got %+v", sum)
	}
	docs := store.sorted("raw_r1")
	if len(docs) != 6 || docs[0]["sequential_number"].(uint64) != 7 {
		t.Fatalf("expected raw sequence to continue at 7, got %d docs", len(docs))
	}
	meta := store.sorted("shots_meta_r1")
	if len(meta) != 1 || meta[0]["shot_number"].(uint64) != 5 {
		t.Fatalf("expected shot numbering to continue at 5, got %v", meta)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := loadConfig(t, t.TempDir())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := newRunner(t, cfg, &memStore{}, Deps{Status: fixedStatus(ports.StatusRunning)}).Run(ctx)
	if err != nil {
		t.Fatalf("cancelled run should stop cleanly, got %v", err)
	}
}

func storedRun() []domain.RawSample {
	state := domain.NewRunState(10, domain.EpochSeconds(t0))
	out := make([]domain.RawSample, 0, len(stroke)+1)
	for _, v := range append(append([]float64(nil), stroke...), 60) {
		seq, ts := state.Next()
		out = append(out, domain.RawSample{Seq: seq, Timestamp: ts, Values: map[string]float64{"stroke": v, "force": 5}})
	}
	return out
}

func TestReplay(t *testing.T) {
	cfg := loadConfig(t, t.TempDir())
	store := &memStore{}
	raw := &fakeRaw{stored: storedRun()}
	r := newRunner(t, cfg, store, Deps{Raw: raw})

	sum, err := r.Replay(context.Background(), ReplayOptions{Start: 0, End: 13, OutputRun: "r1_replay"})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if sum.Samples != 13 || sum.Shots != 2 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if n := len(store.sorted("shots_r1_replay")); n != 6 {
		t.Fatalf("expected 6 replayed cut-out samples, got %d", n)
	}
	if n := len(store.sorted("raw_r1")); n != 0 {
		t.Fatalf("replay must not rewrite raw samples, got %d", n)
	}

	sum, err = r.Replay(context.Background(), ReplayOptions{Start: 7, End: 13})
	if err != nil {
		t.Fatalf("partial replay: %v", err)
	}
	if sum.Shots != 1 {
		t.Fatalf("expected one shot in [7,13), got %d", sum.Shots)
	}
}

func TestValidateRange(t *testing.T) {
	cases := []struct {
		start, end, total uint64
		ok                bool
	}{
		{0, 5, 10, true},
		{3, 9, 10, true},
		{5, 5, 10, false},
		{6, 2, 10, false},
		{0, 10, 10, false},
		{0, 1, 0, false},
	}
	for _, tc := range cases {
		err := ValidateRange(tc.start, tc.end, tc.total)
		if tc.ok && err != nil {
			t.Fatalf("[%d,%d) of %d: unexpected error %v", tc.start, tc.end, tc.total, err)
		}
		if !tc.ok && !errors.Is(err, domain.ErrInvalidReplayRange) {
			t.Fatalf("[%d,%d) of %d: expected ErrInvalidReplayRange, got %v", tc.start, tc.end, tc.total, err)
		}
	}

	r := newRunner(t, loadConfig(t, t.TempDir()), &memStore{}, Deps{Raw: &fakeRaw{stored: storedRun()}})
	if _, err := r.Replay(context.Background(), ReplayOptions{Start: 3, End: 99}); !errors.Is(err, domain.ErrInvalidReplayRange) {
		t.Fatalf("expected ErrInvalidReplayRange, got %v", err)
	}
}
