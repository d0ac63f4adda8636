package ports

import "github.com/isabella232/iot-edge-opc-publisher/internal/domain"

// AuditSink consumes batches of configuration-change events and persists them
// to any downstream system.
type AuditSink interface {
	WriteBatch(events []*domain.AuditEvent) error
	Name() string
}

// AuditQueue is the bounded buffer that decouples registry mutation from the
// audit sink.
type AuditQueue interface {
	Enqueue(e *domain.AuditEvent) bool
	DequeueBatch(max int) []*domain.AuditEvent
	Len() int
}
