package pipeline

import (
	"time"

	"github.com/isabella232/iot-edge-opc-publisher/internal/ports"
)

// RunAuditPipeline drains buffered audit events into the sink in batches.
// It returns when stop is closed and the queue has been flushed. Sink
// failures keep the batch's events lost to the audit trail only; the live
// configuration is unaffected.
func RunAuditPipeline(q ports.AuditQueue, sink ports.AuditSink, pol ports.Policy, obs ports.Observability, stop <-chan struct{}) {
	sleep := pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	for {
		batch := q.DequeueBatch(pol.MaxBatchSize)
		if len(batch) == 0 {
			select {
			case <-stop:
				return
			case <-time.After(sleep):
			}
			continue
		}

		if err := sink.WriteBatch(batch); err != nil {
			obs.LogError("audit_write_failed", err,
				ports.Field{Key: "sink", Value: sink.Name()},
				ports.Field{Key: "events", Value: len(batch)})
			continue
		}
	}
}
