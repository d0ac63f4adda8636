package registry

import (
	"sync"

	"github.com/isabella232/iot-edge-opc-publisher/internal/ports"
)

// stubObs records observability calls for assertions.
type stubObs struct {
	mu       sync.Mutex
	warns    []string
	errors   []string
	counters map[string]float64
	skipped  int
}

func newStubObs() *stubObs {
	return &stubObs{counters: make(map[string]float64)}
}

func (s *stubObs) LogInfo(msg string, fields ...ports.Field) {}

func (s *stubObs) LogWarn(msg string, fields ...ports.Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warns = append(s.warns, msg)
}

func (s *stubObs) LogError(msg string, err error, fields ...ports.Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, msg)
}

func (s *stubObs) LogCritical(msg string, err error, fields ...ports.Field) {
	s.LogError(msg, err, fields...)
}

func (s *stubObs) IncCounter(name string, v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[name] += v
}

func (s *stubObs) ObserveLatency(name string, seconds float64) {}

func (s *stubObs) SetGauge(name string, v float64) {}

func (s *stubObs) RecordSkippedNode(endpoint, nodeID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skipped++
}

// stubClient fakes a connected protocol session with a fixed namespace table.
type stubClient struct {
	connected  bool
	namespaces map[string]uint16
}

func (c *stubClient) Connected() bool { return c.connected }

func (c *stubClient) NamespaceIndex(uri string) (uint16, bool) {
	idx, ok := c.namespaces[uri]
	return idx, ok
}
