package pipeline

import (
	"context"
	"fmt"

	"github.com/ghalamif/PressFlow/internal/domain"
	"github.com/ghalamif/PressFlow/internal/ports"
)

// replayPage is how many stored samples are segmented per dispatch.
const replayPage = 50_000

// ReplayOptions selects the sequence range [Start, End) of a stored run.
type ReplayOptions struct {
	Start uint64
	End   uint64
	// OutputRun names the run the shot documents are written under;
	// empty writes them under the source run.
	OutputRun string
}

// Replay re-segments stored raw samples. The event log must be final: an
// open pause is an error here.
func (r *Runner) Replay(ctx context.Context, opts ReplayOptions) (Summary, error) {
	var sum Summary
	obs := r.deps.Obs

	total, err := r.deps.Raw.CountRaw(ctx, r.rawColl)
	if err != nil {
		return sum, fmt.Errorf("count raw samples: %w", err)
	}
	if err := ValidateRange(opts.Start, opts.End, total); err != nil {
		return sum, err
	}

	outRun := opts.OutputRun
	if outRun == "" {
		outRun = r.runID
	}
	shotsColl, metaColl := r.collections(outRun)
	seg, err := newSegmenter(r.cfg, outRun, shotsColl, metaColl, obs, &sum)
	if err != nil {
		return sum, err
	}
	events, err := r.deps.Events.Events(ctx, r.runID)
	if err != nil {
		return sum, fmt.Errorf("read event log: %w", err)
	}
	if err := seg.update(events); err != nil {
		return sum, err
	}

	obs.LogInfo("replay_started",
		ports.Field{Key: "start", Value: opts.Start},
		ports.Field{Key: "end", Value: opts.End},
		ports.Field{Key: "output_run", Value: outRun})

	buf := make([]domain.RawSample, 0, replayPage)
	flush := func() {
		if len(buf) == 0 {
			return
		}
		sum.Samples += len(buf)
		if jobs := seg.feed(buf); len(jobs) > 0 {
			r.deps.Ingest.Dispatch(ctx, jobs...)
		}
		buf = buf[:0]
	}

	err = r.deps.Raw.IterateRaw(ctx, r.rawColl, r.cfg.Channels(), opts.Start, opts.End, func(s domain.RawSample) error {
		buf = append(buf, s)
		if len(buf) == replayPage {
			flush()
		}
		return nil
	})
	if err != nil {
		r.deps.Ingest.Drain()
		return sum, fmt.Errorf("read raw samples: %w", err)
	}
	flush()
	r.finish(seg, &sum)
	return sum, nil
}

// ValidateRange checks a manual replay range against the stored sample
// count: start < end and both inside [0, total).
func ValidateRange(start, end, total uint64) error {
	if start >= end {
		return fmt.Errorf("%w: start %d not below end %d", domain.ErrInvalidReplayRange, start, end)
	}
	if end >= total {
		return fmt.Errorf("%w: end %d outside [0, %d)", domain.ErrInvalidReplayRange, end, total)
	}
	return nil
}
