package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPromObsMetrics(t *testing.T) {
	origReg := prometheus.DefaultRegisterer
	origGatherer := prometheus.DefaultGatherer
	t.Cleanup(func() {
		prometheus.DefaultRegisterer = origReg
		prometheus.DefaultGatherer = origGatherer
	})

	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	obs := NewPromObs()

	obs.IncCounter("publisher_persist_total", 3)
	if got := testutil.ToFloat64(obs.counters["publisher_persist_total"]); got != 3 {
		t.Fatalf("expected persist counter 3, got %f", got)
	}

	obs.IncCounter("publisher_endpoint_divergence_total", 2)
	if got := testutil.ToFloat64(obs.counters["publisher_endpoint_divergence_total"]); got != 2 {
		t.Fatalf("expected divergence counter 2, got %f", got)
	}

	obs.SetGauge("publisher_node_config_version", 17)
	if got := testutil.ToFloat64(obs.gauges["publisher_node_config_version"]); got != 17 {
		t.Fatalf("expected version gauge 17, got %f", got)
	}

	obs.ObserveLatency("publisher_persist_duration_seconds", 0.05)
	hCollector := obs.histos["publisher_persist_duration_seconds"].(prometheus.Collector)
	if samples := testutil.CollectAndCount(hCollector); samples != 1 {
		t.Fatalf("expected persist histogram to record 1 sample, got %d", samples)
	}

	obs.RecordSkippedNode("opc.tcp://plc-1:4840", "nsu=;s=Bad", nil)
	if got := testutil.ToFloat64(obs.counters["publisher_nodes_skipped_total"]); got != 1 {
		t.Fatalf("expected skipped counter 1, got %f", got)
	}
}

func TestPromObsUnknownNamesAreIgnored(t *testing.T) {
	origReg := prometheus.DefaultRegisterer
	origGatherer := prometheus.DefaultGatherer
	t.Cleanup(func() {
		prometheus.DefaultRegisterer = origReg
		prometheus.DefaultGatherer = origGatherer
	})

	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	obs := NewPromObs()

	obs.IncCounter("no_such_counter", 1)
	obs.SetGauge("no_such_gauge", 1)
	obs.ObserveLatency("no_such_histogram", 1)
}
