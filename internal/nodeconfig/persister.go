package nodeconfig

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/isabella232/iot-edge-opc-publisher/internal/domain"
	"github.com/isabella232/iot-edge-opc-publisher/internal/ports"
)

// Source is the view of the registry the persister needs: a cheap version
// probe and a grouped snapshot with the version observed while walking.
type Source interface {
	Version() uint64
	ExportGrouped(endpointFilter string, includeRemovalPending bool) ([]domain.PublishedNodesEntry, uint64)
}

// Persister rewrites the published-nodes file when the node configuration
// version has moved past the last successfully written one.
type Persister struct {
	file   *File
	source Source
	obs    ports.Observability

	lastWritten atomic.Uint64
}

func NewPersister(file *File, source Source, obs ports.Observability) *Persister {
	return &Persister{file: file, source: source, obs: obs}
}

// LastWritten returns the version marker of the last successful write.
func (p *Persister) LastWritten() uint64 {
	return p.lastWritten.Load()
}

// Persist writes a full grouped snapshot if anything changed since the last
// successful write, and is a no-op otherwise. The marker records the version
// observed during the export traversal; a mutation racing in between the
// staleness check and the traversal leaves the counter ahead of the marker,
// so the following call writes again. Failures keep the marker untouched and
// are retried on the next call.
func (p *Persister) Persist() (bool, error) {
	if p.source.Version() == p.lastWritten.Load() {
		return false, nil
	}

	snapshot, version := p.source.ExportGrouped("", true)
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		p.obs.LogError("persist_serialize_failed", err)
		p.obs.IncCounter("publisher_persist_failures_total", 1)
		return false, err
	}

	start := time.Now()
	if err := p.file.Replace(data); err != nil {
		p.obs.LogError("persist_write_failed", err,
			ports.Field{Key: "path", Value: p.file.Path()})
		p.obs.IncCounter("publisher_persist_failures_total", 1)
		return false, err
	}

	p.lastWritten.Store(version)
	p.obs.ObserveLatency("publisher_persist_duration_seconds", time.Since(start).Seconds())
	p.obs.IncCounter("publisher_persist_total", 1)
	p.obs.LogInfo("published_nodes_persisted",
		ports.Field{Key: "path", Value: p.file.Path()},
		ports.Field{Key: "version", Value: version},
		ports.Field{Key: "sessions", Value: len(snapshot)})
	return true, nil
}
