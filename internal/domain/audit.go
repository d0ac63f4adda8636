package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditEventType labels a configuration-change event.
type AuditEventType string

const (
	AuditSessionCreated   AuditEventType = "session_created"
	AuditItemAdded        AuditEventType = "item_added"
	AuditRemovalRequested AuditEventType = "removal_requested"
	AuditPersisted        AuditEventType = "persisted"
)

// AuditEvent records one configuration change for the audit trail.
type AuditEvent struct {
	ID          uuid.UUID      `json:"id"`
	Type        AuditEventType `json:"type"`
	EndpointURL string         `json:"endpoint_url,omitempty"`
	NodeID      string         `json:"node_id,omitempty"`
	Version     uint64         `json:"version"`
	At          time.Time      `json:"at"`
}
