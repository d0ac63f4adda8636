package nodeconfig

import (
	"github.com/isabella232/iot-edge-opc-publisher/internal/ports"
)

type stubObs struct {
	warns   int
	errors  int
	skipped int
}

func (s *stubObs) LogInfo(msg string, fields ...ports.Field)                {}
func (s *stubObs) LogWarn(msg string, fields ...ports.Field)                { s.warns++ }
func (s *stubObs) LogError(msg string, err error, fields ...ports.Field)    { s.errors++ }
func (s *stubObs) LogCritical(msg string, err error, fields ...ports.Field) { s.errors++ }
func (s *stubObs) IncCounter(name string, v float64)                        {}
func (s *stubObs) ObserveLatency(name string, seconds float64)              {}
func (s *stubObs) SetGauge(name string, v float64)                          {}
func (s *stubObs) RecordSkippedNode(endpoint, nodeID string, err error)     { s.skipped++ }
