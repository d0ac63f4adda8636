package queue

import (
	"sync"

	"github.com/isabella232/iot-edge-opc-publisher/internal/domain"
	"github.com/isabella232/iot-edge-opc-publisher/internal/ports"
)

// MemQueue is a bounded in-memory buffer for audit events, FIFO ordered.
type MemQueue struct {
	mu   sync.Mutex
	data []*domain.AuditEvent
	cap  int
}

func NewMemQueue(capacity int) *MemQueue {
	return &MemQueue{
		data: make([]*domain.AuditEvent, 0, capacity),
		cap:  capacity,
	}
}

func (q *MemQueue) Enqueue(e *domain.AuditEvent) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) >= q.cap {
		return false
	}
	q.data = append(q.data, e)
	return true
}

func (q *MemQueue) DequeueBatch(max int) []*domain.AuditEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) == 0 {
		return nil
	}
	if max <= 0 || max > len(q.data) {
		max = len(q.data)
	}
	out := make([]*domain.AuditEvent, max)
	copy(out, q.data[:max])
	q.data = append(q.data[:0], q.data[max:]...)
	return out
}

func (q *MemQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.data)
}

var _ ports.AuditQueue = (*MemQueue)(nil)
