package ports

import "time"

// Policy controls audit buffering thresholds.
type Policy struct {
	MaxQueueLen  int
	MaxBatchSize int
	IdleSleep    time.Duration

	OnQueueFull string // "reject", "block", "drop"
}
