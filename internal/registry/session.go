package registry

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/isabella232/iot-edge-opc-publisher/internal/domain"
	"github.com/isabella232/iot-edge-opc-publisher/internal/ports"
)

// Session groups everything published on one endpoint. The endpoint URL is
// unique (case-insensitive) across all live sessions.
type Session struct {
	id                  uuid.UUID
	endpointURL         string
	useSecurity         bool
	authMode            domain.AuthMode
	encryptedCredential *string

	mu            sync.Mutex
	state         ports.ConnectionState
	client        ports.SessionClient
	subscriptions []*Subscription
}

func (s *Session) ID() uuid.UUID               { return s.id }
func (s *Session) EndpointURL() string         { return s.endpointURL }
func (s *Session) UseSecurity() bool           { return s.useSecurity }
func (s *Session) AuthMode() domain.AuthMode   { return s.authMode }
func (s *Session) EncryptedCredential() *string { return s.encryptedCredential }

// State returns the connectivity last reported by the protocol layer.
func (s *Session) State() ports.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscription groups items sharing one publishing cadence within a session.
// An unset interval is its own distinct group; the protocol layer substitutes
// the default downstream.
type Subscription struct {
	publishingInterval domain.OptInt
	items              []*MonitoredItem
}

// PublishingInterval returns the cadence and whether it was explicitly
// configured.
func (s *Subscription) PublishingInterval() domain.OptInt { return s.publishingInterval }

// MonitoredItem is one individually tracked node. Field provenance records
// whether a value came from the file (kept on export) or from process
// defaults (omitted on export).
type MonitoredItem struct {
	id          domain.CanonicalID
	endpointURL string // back-reference to the owning session, not ownership

	samplingInterval  domain.OptInt
	displayName       domain.OptString
	heartbeatInterval domain.OptInt
	skipFirst         domain.OptBool

	state domain.ItemState
}

func (m *MonitoredItem) ID() domain.CanonicalID { return m.id }
func (m *MonitoredItem) EndpointURL() string    { return m.endpointURL }
func (m *MonitoredItem) State() domain.ItemState { return m.state }

// findSessionLocked requires sessionsMu to be held.
func (r *Registry) findSessionLocked(endpointURL string) *Session {
	for _, s := range r.sessions {
		if strings.EqualFold(s.endpointURL, endpointURL) {
			return s
		}
	}
	return nil
}

// SetSessionState records connectivity reported by the protocol layer.
func (r *Registry) SetSessionState(endpointURL string, state ports.ConnectionState) bool {
	r.sessionsMu.Lock()
	s := r.findSessionLocked(endpointURL)
	r.sessionsMu.Unlock()
	if s == nil {
		return false
	}
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	return true
}

// AttachClient binds the live protocol session used for namespace lookups.
func (r *Registry) AttachClient(endpointURL string, client ports.SessionClient) bool {
	r.sessionsMu.Lock()
	s := r.findSessionLocked(endpointURL)
	r.sessionsMu.Unlock()
	if s == nil {
		return false
	}
	s.mu.Lock()
	s.client = client
	s.mu.Unlock()
	return true
}

// Sessions snapshots the live session pointers so the protocol layer can
// drive connections without holding registry locks.
func (r *Registry) Sessions() []*Session {
	r.sessionsMu.Lock()
	defer r.sessionsMu.Unlock()
	out := make([]*Session, len(r.sessions))
	copy(out, r.sessions)
	return out
}

// setItemState flips the lifecycle state of one item, matched by endpoint and
// canonical identifier text.
func (r *Registry) setItemState(endpointURL, nodeID string, state domain.ItemState) bool {
	r.structureMu.Lock()
	defer r.structureMu.Unlock()
	r.sessionsMu.Lock()
	defer r.sessionsMu.Unlock()

	s := r.findSessionLocked(endpointURL)
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subscriptions {
		for _, item := range sub.items {
			if item.id.String() == nodeID {
				item.state = state
				return true
			}
		}
	}
	return false
}

// MarkMonitored records that the protocol layer created the monitored item on
// the wire.
func (r *Registry) MarkMonitored(endpointURL, nodeID string) bool {
	return r.setItemState(endpointURL, nodeID, domain.ItemMonitored)
}

// RequestRemoval queues an item for removal from monitoring. The item stays
// in the structure until purged.
func (r *Registry) RequestRemoval(endpointURL, nodeID string) bool {
	ok := r.setItemState(endpointURL, nodeID, domain.ItemRemovalRequested)
	if ok {
		r.emit(domain.AuditRemovalRequested, endpointURL, nodeID)
	}
	return ok
}

// MarkRemoved records that the protocol layer deleted the item on the wire.
func (r *Registry) MarkRemoved(endpointURL, nodeID string) bool {
	return r.setItemState(endpointURL, nodeID, domain.ItemRemoved)
}
