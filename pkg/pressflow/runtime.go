package pressflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ghalamif/PressFlow/internal/adapters/archive"
	"github.com/ghalamif/PressFlow/internal/adapters/docstore"
	"github.com/ghalamif/PressFlow/internal/adapters/eventlog"
	"github.com/ghalamif/PressFlow/internal/adapters/observability"
	"github.com/ghalamif/PressFlow/internal/adapters/opcua"
	"github.com/ghalamif/PressFlow/internal/adapters/queue"
	"github.com/ghalamif/PressFlow/internal/adapters/spool"
	"github.com/ghalamif/PressFlow/internal/app/config"
	"github.com/ghalamif/PressFlow/internal/app/ingest"
	"github.com/ghalamif/PressFlow/internal/app/pipeline"
	"github.com/ghalamif/PressFlow/internal/ports"
)

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	opener   StoreOpener
	raw      RawReader
	events   EventLog
	status   StatusSource
	archiver Archiver
	spool    Spool
	queue    FileQueue
	obs      Observability
	now      func() time.Time
}

// WithStoreOpener routes documents to a custom store (another database, an
// API, a callback).
func WithStoreOpener(open StoreOpener) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.opener = open
	}
}

// WithRawReader replaces the reader used for continuation and replay.
func WithRawReader(r RawReader) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.raw = r
	}
}

// WithEventLog injects the operational event log.
func WithEventLog(l EventLog) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.events = l
	}
}

// WithStatusSource overrides how collection completion is detected.
func WithStatusSource(s StatusSource) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.status = s
	}
}

// WithArchiver overrides what happens to processed frame files.
func WithArchiver(a Archiver) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.archiver = a
	}
}

// WithSpool lets callers bring their own failure spool.
func WithSpool(s Spool) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.spool = s
	}
}

// WithFileQueue injects a custom frame file queue.
func WithFileQueue(q FileQueue) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.queue = q
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.obs = obs
	}
}

// WithClock overrides the wall clock used for file settling.
func WithClock(now func() time.Time) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.now = now
	}
}

// Runtime wires frame discovery, segmentation and bulk ingestion together
// and exposes lifecycle hooks for embedding PressFlow inside a Go service.
type Runtime struct {
	cfg    *Config
	obs    ports.Observability
	spool  ports.Spool
	queue  ports.FileQueue
	opener ports.StoreOpener
	runner *pipeline.Runner

	closers []io.Closer

	metricsOnce sync.Once
	metricsSrv  *http.Server
	gaugeStopCh chan struct{}
}

// NewRuntime bootstraps the default adapters (SQL document store and event
// log, event-log or OPC UA status, file spool, in-memory queue, Prometheus
// observability). Options override any of them.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var o runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	rt := &Runtime{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			_ = rt.closeAll()
		}
	}()

	rt.obs = o.obs
	if rt.obs == nil {
		logger, err := observability.NewLogger(cfg.Log, cfg.Run.ID, cfg.Run.Machine, nil)
		if err != nil {
			return nil, err
		}
		rt.obs = observability.NewPromObs(prometheus.DefaultRegisterer, logger)
	}

	ctx := context.Background()

	raw := o.raw
	if raw == nil {
		store, err := docstore.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("open raw reader: %w", err)
		}
		rt.closers = append(rt.closers, store)
		raw = store
	}

	rt.opener = o.opener
	if rt.opener == nil {
		rt.opener = docstore.Opener(cfg.Store.Driver, cfg.Store.DSN)
	}

	events := o.events
	if events == nil {
		l, err := eventlog.Open(cfg.EventLog)
		if err != nil {
			return nil, fmt.Errorf("open event log: %w", err)
		}
		rt.closers = append(rt.closers, l)
		events = l
	}

	status := o.status
	if status == nil {
		switch cfg.Status.Source {
		case config.StatusFromOPCUA:
			src, err := opcua.NewStatusSource(cfg.Status.OPCUA)
			if err != nil {
				return nil, err
			}
			rt.closers = append(rt.closers, src)
			status = src
		default:
			status = &eventlog.LogStatus{Log: events, StopBuffer: cfg.Segmentation.StopBuffer, Now: o.now}
		}
	}

	arch := o.archiver
	if arch == nil {
		a, err := archive.New(ctx, cfg.Archive)
		if err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
		arch = a
	}

	rt.spool = o.spool
	if rt.spool == nil && !cfg.Spool.Disabled {
		s, err := spool.NewFileSpool(cfg.Spool.Dir)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, s)
		rt.spool = s
	}

	rt.queue = o.queue
	if rt.queue == nil {
		rt.queue = queue.NewMemQueue(cfg.Policy.MaxQueueLen)
	}

	ing, err := ingest.New(ingest.Config{
		Workers:     cfg.Policy.Workers,
		ChunkSize:   cfg.Policy.ChunkSize,
		MaxInFlight: cfg.Policy.MaxInFlight,
	}, rt.opener, rt.spool, rt.obs)
	if err != nil {
		return nil, err
	}

	rt.runner, err = pipeline.New(cfg, pipeline.Deps{
		Raw:      raw,
		Events:   events,
		Status:   status,
		Archiver: arch,
		Queue:    rt.queue,
		Ingest:   ing,
		Obs:      rt.obs,
		Now:      o.now,
	})
	if err != nil {
		return nil, err
	}

	ok = true
	return rt, nil
}

const shutdownTimeout = 5 * time.Second

// Run follows the configured collection until it completes or ctx is
// cancelled. Cancellation drains in-flight batches and returns a nil error.
func (r *Runtime) Run(ctx context.Context) (Summary, error) {
	if r == nil {
		return Summary{}, fmt.Errorf("runtime is nil")
	}
	r.startMetrics()
	return r.runner.Run(ctx)
}

// Replay re-segments a stored sequence range of the configured run.
func (r *Runtime) Replay(ctx context.Context, opts ReplayOptions) (Summary, error) {
	if r == nil {
		return Summary{}, fmt.Errorf("runtime is nil")
	}
	r.startMetrics()
	return r.runner.Replay(ctx, opts)
}

// Shutdown stops the metrics server and closes every adapter the runtime
// opened itself.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	if r.gaugeStopCh != nil {
		close(r.gaugeStopCh)
		r.gaugeStopCh = nil
	}

	if r.metricsSrv != nil {
		if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	if err := r.closeAll(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (r *Runtime) closeAll() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

func (r *Runtime) startMetrics() {
	r.metricsOnce.Do(func() {
		if r.cfg.Metrics.Disabled {
			return
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})

		r.metricsSrv = &http.Server{
			Addr:              r.cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			if err := r.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				r.obs.LogError("metrics_server_exited", err, ports.Field{Key: "addr", Value: r.cfg.Metrics.Addr})
			}
		}()

		r.gaugeStopCh = make(chan struct{})
		go r.recordGauges(r.gaugeStopCh, time.Second)
	})
}

func (r *Runtime) recordGauges(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if r.spool != nil {
				r.obs.SetGauge("pressflow_spool_size_bytes", float64(r.spool.Stats().SizeBytes))
			}
			r.obs.SetGauge("pressflow_pending_files", float64(r.queue.Len()))
		}
	}
}
