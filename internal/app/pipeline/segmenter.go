package pipeline

import (
	"fmt"

	"github.com/ghalamif/PressFlow/internal/app/config"
	"github.com/ghalamif/PressFlow/internal/app/ingest"
	"github.com/ghalamif/PressFlow/internal/core/convert"
	"github.com/ghalamif/PressFlow/internal/core/interval"
	"github.com/ghalamif/PressFlow/internal/core/metadata"
	"github.com/ghalamif/PressFlow/internal/core/shot"
	"github.com/ghalamif/PressFlow/internal/core/tag"
	"github.com/ghalamif/PressFlow/internal/domain"
	"github.com/ghalamif/PressFlow/internal/ports"
)

// segmenter turns ordered raw samples into shot and shot-metadata documents.
// It belongs to the run's single segmentation goroutine.
type segmenter struct {
	runID     string
	shotsColl string
	metaColl  string
	seg       config.SegmentationConfig

	window interval.Window
	pauses []interval.Pause
	tagger *tag.Tagger

	conv     *convert.Converter
	detector *shot.Detector
	stream   *metadata.Stream
	obs      ports.Observability

	stats *Summary
}

func newStrategy(seg config.SegmentationConfig) (shot.Strategy, error) {
	switch seg.Strategy {
	case config.StrategyPulse:
		return shot.NewPulseStrategy(seg.PulseThreshold), nil
	case config.StrategyStroke, "":
		return shot.NewStrokeStrategy(seg.StartThreshold, seg.EndThreshold, seg.Margin)
	}
	return nil, fmt.Errorf("unknown segmentation strategy %q", seg.Strategy)
}

func newSegmenter(cfg *config.Config, outRun, shotsColl, metaColl string, obs ports.Observability, stats *Summary) (*segmenter, error) {
	strategy, err := newStrategy(cfg.Segmentation)
	if err != nil {
		return nil, err
	}
	conv, err := convert.NewConverter(cfg.Acquisition.Sensors, cfg.Acquisition.Displacement)
	if err != nil {
		return nil, err
	}
	return &segmenter{
		runID:     outRun,
		shotsColl: shotsColl,
		metaColl:  metaColl,
		seg:       cfg.Segmentation,
		conv:      conv,
		detector:  shot.NewDetector(strategy, cfg.Segmentation.Channel),
		stream: metadata.NewStream(metadata.Config{
			MinSPM:            cfg.Segmentation.MinSPM,
			SamplingFrequency: cfg.Acquisition.SamplingFrequency,
		}),
		obs:   obs,
		stats: stats,
	}, nil
}

// update re-reads the collection window, pauses and tag windows. An open
// pause surfaces as domain.ErrIncompleteInterval and leaves the previous
// state untouched.
func (s *segmenter) update(events []domain.OperationalEvent) error {
	window, err := interval.ResolveWindow(events, s.seg.StopBuffer)
	if err != nil {
		return err
	}
	pauses, err := interval.ResolvePauses(events)
	if err != nil {
		return err
	}
	tagger, err := tag.New(events, s.seg.TagBack)
	if err != nil {
		return err
	}
	s.window, s.pauses, s.tagger = window, pauses, tagger
	return nil
}

// feed filters, converts and segments samples. The slice is reused in place.
func (s *segmenter) feed(samples []domain.RawSample) []ingest.Job {
	kept := interval.Apply(samples, s.window, s.pauses)
	if dropped := len(samples) - len(kept); dropped > 0 {
		s.stats.Filtered += dropped
		s.obs.IncCounter("pressflow_samples_filtered_total", float64(dropped))
	}
	if len(kept) == 0 {
		return nil
	}
	s.conv.Apply(kept)
	done := s.detector.Feed(kept)
	return s.release(s.stream.Push(done...))
}

// finish closes an open cut-out and releases the held shot.
func (s *segmenter) finish() []ingest.Job {
	var shots []domain.Shot
	if last, ok := s.detector.Finish(); ok {
		shots = s.stream.Push(last)
	}
	shots = append(shots, s.stream.Flush()...)
	return s.release(shots)
}

func (s *segmenter) release(shots []domain.Shot) []ingest.Job {
	if len(shots) == 0 {
		return nil
	}
	kept, excluded := metadata.Split(shots)
	for _, sh := range excluded {
		s.stats.Excluded++
		s.obs.IncCounter("pressflow_shots_excluded_total", 1)
		s.obs.LogWarn("shot_excluded",
			ports.Field{Key: "shot_number", Value: sh.Summary.ShotNumber},
			ports.Field{Key: "samples", Value: sh.Summary.SampleCount},
			ports.Field{Key: "start", Value: sh.Summary.StartTimestamp})
	}
	if len(kept) == 0 {
		return nil
	}

	var cut, meta []domain.Document
	for _, sh := range kept {
		s.tagger.Apply(sh.Samples)
		for _, c := range sh.Samples {
			cut = append(cut, c.ToDocument(s.runID))
		}
		meta = append(meta, sh.Summary.ToDocument(s.runID))
	}
	s.stats.Shots += len(kept)
	s.obs.IncCounter("pressflow_shots_detected_total", float64(len(kept)))

	return []ingest.Job{
		{Collection: s.shotsColl, Docs: cut},
		{Collection: s.metaColl, Docs: meta},
	}
}
