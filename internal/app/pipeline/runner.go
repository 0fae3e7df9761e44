// Package pipeline drives a collection run: it discovers frame files,
// decodes and segments them, and hands the resulting documents to the bulk
// ingestion pipeline.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ghalamif/PressFlow/internal/adapters/docstore"
	"github.com/ghalamif/PressFlow/internal/app/config"
	"github.com/ghalamif/PressFlow/internal/app/ingest"
	"github.com/ghalamif/PressFlow/internal/core/frame"
	"github.com/ghalamif/PressFlow/internal/domain"
	"github.com/ghalamif/PressFlow/internal/ports"
)

// Deps are the collaborators of a Runner.
type Deps struct {
	Raw    ports.RawReader
	Events ports.EventLog
	Status ports.StatusSource
	// Archiver is optional; nil leaves processed files in place.
	Archiver ports.Archiver
	Queue    ports.FileQueue
	Ingest   *ingest.Pipeline
	Obs      ports.Observability
	Now      func() time.Time
}

// Summary counts what a run or replay did.
type Summary struct {
	Files       int
	FailedFiles int
	Samples     int
	Filtered    int
	Shots       int
	Excluded    int
	Result      ports.BulkResult
}

type Runner struct {
	cfg     *config.Config
	deps    Deps
	decoder *frame.Decoder
	runID   string
	rawColl string

	known map[string]bool
}

func New(cfg *config.Config, deps Deps) (*Runner, error) {
	if deps.Raw == nil || deps.Events == nil || deps.Ingest == nil {
		return nil, errors.New("pipeline: raw reader, event log and ingest pipeline are required")
	}
	if deps.Obs == nil {
		return nil, errors.New("pipeline: observability is required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Runner{
		cfg:     cfg,
		deps:    deps,
		decoder: frame.NewDecoder(cfg.Channels()),
		runID:   cfg.Run.ID,
		rawColl: docstore.Collection(cfg.Store.Prefix, domain.FamilyRaw, cfg.Run.ID),
		known:   make(map[string]bool),
	}, nil
}

func (r *Runner) collections(run string) (shots, meta string) {
	return docstore.Collection(r.cfg.Store.Prefix, domain.FamilyShots, run),
		docstore.Collection(r.cfg.Store.Prefix, domain.FamilyShotsMeta, run)
}

// Run follows a live collection until the status source reports it
// complete or ctx is cancelled, then drains in-flight batches. A run whose
// samples are already stored continues after the latest stored sample.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	if r.deps.Status == nil || r.deps.Queue == nil {
		return Summary{}, errors.New("pipeline: run needs a status source and a file queue")
	}
	var sum Summary
	obs := r.deps.Obs
	shotsColl, metaColl := r.collections(r.runID)

	seg, err := newSegmenter(r.cfg, r.runID, shotsColl, metaColl, obs, &sum)
	if err != nil {
		return sum, err
	}
	events, err := r.deps.Events.Events(ctx, r.runID)
	if err != nil {
		return sum, fmt.Errorf("read event log: %w", err)
	}
	if err := seg.update(events); err != nil && !errors.Is(err, domain.ErrIncompleteInterval) {
		return sum, err
	}

	state, resumeAfter, err := r.resume(ctx, seg, metaColl)
	if err != nil {
		return sum, err
	}
	resumed := state != nil

	loc, err := r.cfg.Location()
	if err != nil {
		return sum, err
	}
	pol := r.cfg.Policy

	for {
		unsettled, err := r.discover(loc, resumeAfter)
		if err != nil {
			if errors.Is(err, domain.ErrSourceDirMissing) {
				return sum, err
			}
			obs.LogError("discover_failed", err)
		}

		if r.deps.Queue.Len() > 0 {
			ready, err := r.refresh(ctx, seg)
			if err != nil {
				sum.Result = r.deps.Ingest.Drain()
				return sum, fmt.Errorf("event log: %w", err)
			}
			if ready {
				files := r.deps.Queue.DequeueBatch(pol.FilesPerBatch)
				state = r.processFiles(ctx, files, state, seg, &sum)
				obs.SetGauge("pressflow_pending_files", float64(r.deps.Queue.Len()))
				continue
			}
		} else if unsettled == 0 && r.complete(ctx) {
			break
		}

		select {
		case <-ctx.Done():
			obs.LogInfo("run_cancelled", ports.Field{Key: "run_id", Value: r.runID})
			r.finish(seg, &sum)
			return sum, nil
		case <-time.After(pol.PollInterval):
		}
	}

	r.finish(seg, &sum)
	if sum.Files == 0 && !resumed {
		return sum, fmt.Errorf("%w: %s", domain.ErrNoFrameFiles, r.cfg.Source.Dir)
	}
	return sum, nil
}

// resume seeds the clock and shot numbering from what is already stored.
func (r *Runner) resume(ctx context.Context, seg *segmenter, metaColl string) (*domain.RunState, float64, error) {
	last, ok, err := r.deps.Raw.LatestRaw(ctx, r.rawColl)
	if err != nil {
		return nil, 0, fmt.Errorf("read latest raw sample: %w", err)
	}
	if !ok {
		return nil, 0, nil
	}
	lastShot, _, err := r.deps.Raw.MaxSeq(ctx, metaColl)
	if err != nil {
		return nil, 0, fmt.Errorf("read latest shot: %w", err)
	}
	seg.detector.Resume(lastShot)
	r.deps.Obs.LogInfo("run_resumed",
		ports.Field{Key: "last_seq", Value: last.Seq},
		ports.Field{Key: "last_shot", Value: lastShot})
	return domain.ResumeRunState(r.cfg.Acquisition.SamplingFrequency, last.Seq, last.Timestamp), last.Timestamp, nil
}

// refresh reloads the event log. It reports false while a pause is open or
// the log cannot be read so the queued files wait for the next poll. An event
// log that fails validation is returned as an error.
func (r *Runner) refresh(ctx context.Context, seg *segmenter) (bool, error) {
	events, err := r.deps.Events.Events(ctx, r.runID)
	if err != nil {
		r.deps.Obs.LogError("event_log_read_failed", err)
		return false, nil
	}
	if err := seg.update(events); err != nil {
		if errors.Is(err, domain.ErrIncompleteInterval) {
			r.deps.Obs.LogInfo("pause_open_retry")
			return false, nil
		}
		r.deps.Obs.LogError("event_log_invalid", err)
		return false, err
	}
	return true, nil
}

func (r *Runner) complete(ctx context.Context) bool {
	status, err := r.deps.Status.Status(ctx, r.runID)
	if err != nil {
		if ctx.Err() == nil {
			r.deps.Obs.LogError("status_read_failed", err)
		}
		return false
	}
	return status == ports.StatusComplete
}

// discover queues settled frame files and returns how many are still being
// written or did not fit in the queue.
func (r *Runner) discover(loc *time.Location, resumeAfter float64) (int, error) {
	files, err := frame.ListFrameFiles(r.cfg.Source.Dir, r.cfg.Source.Extension, loc)
	if err != nil {
		return 0, err
	}
	now := r.deps.Now()
	waiting := 0
	for _, f := range files {
		if r.known[f.Path] {
			continue
		}
		if resumeAfter > 0 && f.Timestamp <= resumeAfter {
			r.known[f.Path] = true
			continue
		}
		if now.Sub(f.ModTime) < r.cfg.Policy.SettleDelay {
			waiting++
			continue
		}
		if !r.deps.Queue.Enqueue(f) {
			waiting++
			continue
		}
		r.known[f.Path] = true
	}
	return waiting, nil
}

// processFiles decodes files in order and dispatches their documents as one
// batch. A file that fails to decode is logged and skipped.
func (r *Runner) processFiles(ctx context.Context, files []ports.FrameFile, state *domain.RunState, seg *segmenter, sum *Summary) *domain.RunState {
	obs := r.deps.Obs
	var raw []domain.Document
	var jobs []ingest.Job

	for _, f := range files {
		seeded := !state.Started()
		if seeded {
			state = domain.NewRunState(r.cfg.Acquisition.SamplingFrequency, f.Timestamp)
		}
		start := time.Now()
		samples, trailing, err := r.decoder.DecodeFile(f.Path, state)
		obs.ObserveLatency("pressflow_file_decode_seconds", time.Since(start).Seconds())
		if err != nil {
			if seeded {
				state = nil
			}
			sum.FailedFiles++
			obs.IncCounter("pressflow_files_failed_total", 1)
			obs.LogError("file_decode_failed", err, ports.Field{Key: "file", Value: f.Path})
			continue
		}
		if trailing > 0 {
			obs.LogWarn("partial_record_dropped",
				ports.Field{Key: "file", Value: f.Path},
				ports.Field{Key: "bytes", Value: trailing})
		}

		sum.Files++
		sum.Samples += len(samples)
		obs.IncCounter("pressflow_files_processed_total", 1)
		obs.IncCounter("pressflow_samples_decoded_total", float64(len(samples)))

		for _, s := range samples {
			raw = append(raw, s.ToDocument(r.runID))
		}
		jobs = append(jobs, seg.feed(samples)...)

		if r.deps.Archiver != nil {
			if err := r.deps.Archiver.Archive(ctx, f.Path); err != nil {
				obs.LogError("archive_failed", err, ports.Field{Key: "file", Value: f.Path})
			} else {
				obs.LogInfo("file_archived",
					ports.Field{Key: "file", Value: f.Path},
					ports.Field{Key: "size", Value: humanize.Bytes(uint64(f.Size))})
			}
		}
	}

	if len(raw) > 0 {
		jobs = append([]ingest.Job{{Collection: r.rawColl, Docs: raw}}, jobs...)
	}
	if len(jobs) > 0 {
		r.deps.Ingest.Dispatch(ctx, jobs...)
	}
	return state
}

// finish flushes the segmenter and joins every in-flight batch.
func (r *Runner) finish(seg *segmenter, sum *Summary) {
	if jobs := seg.finish(); len(jobs) > 0 {
		r.deps.Ingest.Dispatch(context.Background(), jobs...)
	}
	sum.Result = r.deps.Ingest.Drain()
	r.deps.Obs.LogInfo("run_finished",
		ports.Field{Key: "files", Value: sum.Files},
		ports.Field{Key: "samples", Value: humanize.Comma(int64(sum.Samples))},
		ports.Field{Key: "shots", Value: sum.Shots},
		ports.Field{Key: "excluded", Value: sum.Excluded},
		ports.Field{Key: "inserted", Value: sum.Result.Inserted},
		ports.Field{Key: "failed", Value: sum.Result.Failed})
}
