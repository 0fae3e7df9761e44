// Package observability backs the Observability port with zap and
// Prometheus.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ghalamif/PressFlow/internal/domain"
	"github.com/ghalamif/PressFlow/internal/ports"
)

type PromObs struct {
	log      *zap.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// NewPromObs registers the pressflow metric set on reg. A nil reg uses the
// default registerer; a nil logger discards logs.
func NewPromObs(reg prometheus.Registerer, logger *zap.Logger) *PromObs {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	}

	counters := map[string]prometheus.Counter{
		"pressflow_files_processed_total":    counter("pressflow_files_processed_total", "Frame files decoded and dispatched."),
		"pressflow_files_failed_total":       counter("pressflow_files_failed_total", "Frame files skipped after a decode error."),
		"pressflow_samples_decoded_total":    counter("pressflow_samples_decoded_total", "Raw samples decoded from frame files."),
		"pressflow_samples_filtered_total":   counter("pressflow_samples_filtered_total", "Samples dropped outside the collection window or inside a pause."),
		"pressflow_shots_detected_total":     counter("pressflow_shots_detected_total", "Shots whose cut-out completed."),
		"pressflow_shots_excluded_total":     counter("pressflow_shots_excluded_total", "Shots withheld from the shots family for exceeding the sample cap."),
		"pressflow_documents_inserted_total": counter("pressflow_documents_inserted_total", "Documents accepted by the store."),
		"pressflow_documents_failed_total":   counter("pressflow_documents_failed_total", "Documents the store rejected."),
		"pressflow_dlq_total":                counter("pressflow_dlq_total", "Documents written to the failure spool."),
	}
	gauges := map[string]prometheus.Gauge{
		"pressflow_pending_files":       gauge("pressflow_pending_files", "Frame files queued but not yet decoded."),
		"pressflow_ingest_workers_busy": gauge("pressflow_ingest_workers_busy", "Bulk insert workers currently running."),
		"pressflow_spool_size_bytes":    gauge("pressflow_spool_size_bytes", "Size of the failure spool on disk."),
	}
	bulk := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pressflow_bulk_insert_seconds",
		Help:    "Latency of one bulk insert chunk.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	})
	decode := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pressflow_file_decode_seconds",
		Help:    "Time to decode one frame file.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})

	for _, c := range counters {
		reg.MustRegister(c)
	}
	for _, g := range gauges {
		reg.MustRegister(g)
	}
	reg.MustRegister(bulk, decode)

	return &PromObs{
		log:      logger,
		counters: counters,
		gauges:   gauges,
		histos: map[string]prometheus.Observer{
			"pressflow_bulk_insert_seconds": bulk,
			"pressflow_file_decode_seconds": decode,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.log.Info(msg, zapFields(fields)...)
}

func (p *PromObs) LogWarn(msg string, fields ...ports.Field) {
	p.log.Warn(msg, zapFields(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	p.log.Error(msg, append(zapFields(fields), zap.Error(err))...)
}

// LogCritical logs at error level with a critical marker; it never exits.
func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	p.log.Error(msg, append(zapFields(fields), zap.Error(err), zap.Bool("critical", true))...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) RecordDLQ(collection string, doc domain.Document, err error) {
	p.IncCounter("pressflow_dlq_total", 1)
	p.log.Warn("document rejected",
		zap.String("collection", collection),
		zap.Any("doc_id", doc["doc_id"]),
		zap.Error(err))
}

// Logger exposes the underlying zap logger.
func (p *PromObs) Logger() *zap.Logger { return p.log }

func zapFields(fields []ports.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+2)
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

var _ ports.Observability = (*PromObs)(nil)
