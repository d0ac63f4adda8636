// Package registry holds the live Session → Subscription → MonitoredItem
// hierarchy built from the published-nodes configuration, and the lock
// discipline protecting it.
//
// Lock order is fixed: structure lock → session-list lock → per-session lock.
// The structure lock guards the shape of the whole hierarchy (adding sessions,
// subscriptions, items). The session-list lock guards membership of the
// session slice. Per-session locks guard one session's subscription list and
// connectivity state and are only held transiently while visiting that
// session; they are never held while acquiring one of the outer locks and
// never nested across sessions.
package registry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/isabella232/iot-edge-opc-publisher/internal/domain"
	"github.com/isabella232/iot-edge-opc-publisher/internal/ports"
)

// Defaults are the process-wide values applied to item fields the
// configuration file left unset. They are never written back on export.
type Defaults struct {
	PublishingInterval int
	SamplingInterval   int
	HeartbeatInterval  int
	SkipFirst          bool
}

// Registry is the single root owning all live sessions. Collaborators only
// reach the hierarchy through its locked accessors.
type Registry struct {
	structureMu sync.Mutex
	sessionsMu  sync.Mutex
	sessions    []*Session

	version  atomic.Uint64
	defaults Defaults
	obs      ports.Observability
	audit    ports.AuditQueue // nil disables auditing
}

// Option customizes a Registry.
type Option func(*Registry)

// WithAuditQueue enables config-change audit events.
func WithAuditQueue(q ports.AuditQueue) Option {
	return func(r *Registry) {
		r.audit = q
	}
}

func New(defaults Defaults, obs ports.Observability, opts ...Option) *Registry {
	r := &Registry{
		defaults: defaults,
		obs:      obs,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Version returns the global node configuration version. It is incremented
// exactly once per monitored item structurally added, and never decreases.
// Reads are lock-free so persistence can poll it cheaply.
func (r *Registry) Version() uint64 {
	return r.version.Load()
}

func (r *Registry) emit(t domain.AuditEventType, endpoint, nodeID string) {
	if r.audit == nil {
		return
	}
	ev := &domain.AuditEvent{
		ID:          uuid.New(),
		Type:        t,
		EndpointURL: endpoint,
		NodeID:      nodeID,
		Version:     r.version.Load(),
		At:          time.Now().UTC(),
	}
	if !r.audit.Enqueue(ev) {
		r.obs.IncCounter("publisher_audit_dropped_total", 1)
	}
}
