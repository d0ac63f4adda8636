package registry

import (
	"github.com/isabella232/iot-edge-opc-publisher/internal/domain"
	"github.com/isabella232/iot-edge-opc-publisher/internal/ports"
)

// Counts is a point-in-time census of the hierarchy, taken under the full
// read-lock sequence.
type Counts struct {
	ConfiguredSessions      int `json:"configuredSessions"`
	ConnectedSessions       int `json:"connectedSessions"`
	ConfiguredSubscriptions int `json:"configuredSubscriptions"`
	ConnectedSubscriptions  int `json:"connectedSubscriptions"`
	ConfiguredItems         int `json:"configuredItems"`
	MonitoredItems          int `json:"monitoredItems"`
	RemovalPendingItems     int `json:"removalPendingItems"`
}

func (r *Registry) Counts() Counts {
	r.structureMu.Lock()
	defer r.structureMu.Unlock()
	r.sessionsMu.Lock()
	defer r.sessionsMu.Unlock()

	var c Counts
	for _, s := range r.sessions {
		c.ConfiguredSessions++

		s.mu.Lock()
		connected := s.state == ports.SessionConnected
		if connected {
			c.ConnectedSessions++
		}
		for _, sub := range s.subscriptions {
			c.ConfiguredSubscriptions++
			if connected {
				c.ConnectedSubscriptions++
			}
			for _, item := range sub.items {
				switch item.state {
				case domain.ItemRemoved:
					continue
				case domain.ItemRemovalRequested:
					c.RemovalPendingItems++
				case domain.ItemMonitored:
					c.MonitoredItems++
				}
				c.ConfiguredItems++
			}
		}
		s.mu.Unlock()
	}
	return c
}
