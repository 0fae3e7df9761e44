package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ghalamif/PressFlow/internal/domain"
	"github.com/ghalamif/PressFlow/internal/ports"
)

func TestPromObsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := NewPromObs(reg, nil)

	obs.IncCounter("pressflow_documents_inserted_total", 5)
	if got := testutil.ToFloat64(obs.counters["pressflow_documents_inserted_total"]); got != 5 {
		t.Fatalf("expected inserted counter 5, got %f", got)
	}

	obs.IncCounter("pressflow_files_failed_total", 2)
	if got := testutil.ToFloat64(obs.counters["pressflow_files_failed_total"]); got != 2 {
		t.Fatalf("expected failed files counter 2, got %f", got)
	}

	obs.SetGauge("pressflow_pending_files", 42)
	if got := testutil.ToFloat64(obs.gauges["pressflow_pending_files"]); got != 42 {
		t.Fatalf("expected pending gauge 42, got %f", got)
	}

	obs.ObserveLatency("pressflow_bulk_insert_seconds", 0.5)
	hCollector := obs.histos["pressflow_bulk_insert_seconds"].(prometheus.Collector)
	if samples := testutil.CollectAndCount(hCollector); samples != 1 {
		t.Fatalf("expected latency histogram to record 1 sample, got %d", samples)
	}

	obs.IncCounter("unknown_metric", 1)
	obs.RecordDLQ("raw_run", domain.Document{"doc_id": "x"}, errors.New("boom"))
	if got := testutil.ToFloat64(obs.counters["pressflow_dlq_total"]); got != 1 {
		t.Fatalf("expected dlq counter 1, got %f", got)
	}

	if n, err := testutil.GatherAndCount(reg); err != nil || n == 0 {
		t.Fatalf("expected registered metrics, got %d (%v)", n, err)
	}
}

func TestLoggerCarriesRunContext(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(LogConfig{Level: "info"}, "run-7", "press-2", &buf)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	obs := NewPromObs(prometheus.NewRegistry(), logger)
	obs.LogInfo("file decoded", ports.Field{Key: "samples", Value: 3})
	obs.LogWarn("second entry")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(lines))
	}
	var entry map[string]any
	if err := json.Unmarshal(lines[0], &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["run_id"] != "run-7" || entry["machine"] != "press-2" || entry["message"] != "file decoded" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if entry["samples"] != float64(3) {
		t.Fatalf("expected samples field, got %v", entry["samples"])
	}
}

func TestLoggerRejectsBadConfig(t *testing.T) {
	if _, err := NewLogger(LogConfig{Level: "loud"}, "r", "", nil); err == nil {
		t.Fatalf("expected level error")
	}
	if _, err := NewLogger(LogConfig{Format: "xml"}, "r", "", nil); err == nil {
		t.Fatalf("expected format error")
	}
}
