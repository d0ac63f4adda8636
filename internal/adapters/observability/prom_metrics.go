package observability

import (
	"fmt"
	"log"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/isabella232/iot-edge-opc-publisher/internal/ports"
)

type PromObs struct {
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

func NewPromObs() *PromObs {
	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "publisher_nodes_skipped_total",
		Help: "Configured nodes skipped due to unresolvable identifiers.",
	})
	divergence := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "publisher_endpoint_divergence_total",
		Help: "Node entries whose connection settings diverged from their endpoint's first entry.",
	})
	persists := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "publisher_persist_total",
		Help: "Successful published-nodes file rewrites.",
	})
	persistFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "publisher_persist_failures_total",
		Help: "Failed published-nodes file rewrites.",
	})
	auditDrops := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "publisher_audit_dropped_total",
		Help: "Audit events lost to buffer backpressure.",
	})
	sessionsGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "publisher_sessions_configured",
		Help: "Sessions currently configured.",
	})
	connectedGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "publisher_sessions_connected",
		Help: "Sessions currently connected.",
	})
	itemsGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "publisher_items_monitored",
		Help: "Items currently monitored on the wire.",
	})
	versionGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "publisher_node_config_version",
		Help: "Global node configuration version counter.",
	})
	persistLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "publisher_persist_duration_seconds",
		Help:    "Wall time of one published-nodes file rewrite.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	prometheus.MustRegister(skipped, divergence, persists, persistFailures,
		auditDrops, sessionsGauge, connectedGauge, itemsGauge, versionGauge, persistLatency)

	return &PromObs{
		counters: map[string]prometheus.Counter{
			"publisher_nodes_skipped_total":       skipped,
			"publisher_endpoint_divergence_total": divergence,
			"publisher_persist_total":             persists,
			"publisher_persist_failures_total":    persistFailures,
			"publisher_audit_dropped_total":       auditDrops,
		},
		gauges: map[string]prometheus.Gauge{
			"publisher_sessions_configured": sessionsGauge,
			"publisher_sessions_connected":  connectedGauge,
			"publisher_items_monitored":     itemsGauge,
			"publisher_node_config_version": versionGauge,
		},
		histos: map[string]prometheus.Observer{
			"publisher_persist_duration_seconds": persistLatency,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {}

func (p *PromObs) LogWarn(msg string, fields ...ports.Field) {
	log.Printf("WARN: %s%s", msg, formatFields(fields))
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("ERROR: %s: %v%s", msg, err, formatFields(fields))
	}
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("CRITICAL: %s: %v%s", msg, err, formatFields(fields))
	}
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

func (p *PromObs) RecordSkippedNode(endpoint, nodeID string, err error) {
	p.IncCounter("publisher_nodes_skipped_total", 1)
	log.Printf("skipping node %s on %s: %v", nodeID, endpoint, err)
}

func formatFields(fields []ports.Field) string {
	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	return b.String()
}
