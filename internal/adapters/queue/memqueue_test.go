package queue

import (
	"testing"

	"github.com/isabella232/iot-edge-opc-publisher/internal/domain"
)

func TestMemQueueEnqueueDequeueOrder(t *testing.T) {
	q := NewMemQueue(4)

	e1 := &domain.AuditEvent{NodeID: "ns=2;i=1"}
	e2 := &domain.AuditEvent{NodeID: "ns=2;i=2"}

	if !q.Enqueue(e1) || !q.Enqueue(e2) {
		t.Fatalf("expected successful enqueue")
	}

	batch := q.DequeueBatch(1)
	if len(batch) != 1 || batch[0].NodeID != "ns=2;i=1" {
		t.Fatalf("unexpected first batch: %+v", batch)
	}

	remaining := q.DequeueBatch(10)
	if len(remaining) != 1 || remaining[0].NodeID != "ns=2;i=2" {
		t.Fatalf("unexpected second batch: %+v", remaining)
	}

	if q.Len() != 0 {
		t.Fatalf("queue should be empty, got %d", q.Len())
	}
}

func TestMemQueueCapacity(t *testing.T) {
	q := NewMemQueue(2)

	event := &domain.AuditEvent{NodeID: "ns=2;i=9"}

	if !q.Enqueue(event) || !q.Enqueue(event) {
		t.Fatalf("expected enqueue within capacity")
	}
	if q.Enqueue(event) {
		t.Fatalf("enqueue should fail when capacity exceeded")
	}

	q.DequeueBatch(1)
	if !q.Enqueue(event) {
		t.Fatalf("expected enqueue to succeed after dequeue")
	}
}

func TestMemQueueDequeueEmpty(t *testing.T) {
	q := NewMemQueue(2)
	if batch := q.DequeueBatch(5); batch != nil {
		t.Fatalf("empty queue must return nil, got %+v", batch)
	}
}
