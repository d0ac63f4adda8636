package registry

import (
	"fmt"
	"strings"

	"github.com/isabella232/iot-edge-opc-publisher/internal/domain"
	"github.com/isabella232/iot-edge-opc-publisher/internal/ports"
)

// ExportGrouped walks the hierarchy under the full read-lock sequence and
// produces one grouped-schema record per matching session. Fields whose
// provenance is "default" are omitted so a reader re-derives its own
// defaults. Items in the RemovalRequested state are included only when
// includeRemovalPending is true; Removed items are never exported.
// The returned version is the global counter observed during the traversal.
func (r *Registry) ExportGrouped(endpointFilter string, includeRemovalPending bool) ([]domain.PublishedNodesEntry, uint64) {
	r.structureMu.Lock()
	defer r.structureMu.Unlock()
	r.sessionsMu.Lock()
	defer r.sessionsMu.Unlock()

	version := r.version.Load()
	var out []domain.PublishedNodesEntry

	for _, s := range r.sessions {
		if !matchesEndpoint(s.endpointURL, endpointFilter) {
			continue
		}
		entry := domain.PublishedNodesEntry{
			EndpointURL:         s.endpointURL,
			UseSecurity:         s.useSecurity,
			AuthenticationMode:  s.authMode,
			EncryptedCredential: s.encryptedCredential,
		}

		s.mu.Lock()
		for _, sub := range s.subscriptions {
			for _, item := range sub.items {
				if !exportable(item.state, includeRemovalPending) {
					continue
				}
				entry.OpcNodes = append(entry.OpcNodes, groupedNode(sub, item))
			}
		}
		s.mu.Unlock()

		if len(entry.OpcNodes) > 0 {
			out = append(out, entry)
		}
	}
	return out, version
}

// ExportLegacy produces the flat/legacy schema: one record per item carrying
// just the endpoint and a single numeric node id. Expanded identifiers are
// rebound through the owning session's live namespace table; when the
// session is disconnected no table exists and those items are omitted.
// RemovalRequested items are always suppressed in this schema.
func (r *Registry) ExportLegacy(endpointFilter string) ([]domain.PublishedNodesEntry, uint64) {
	r.structureMu.Lock()
	defer r.structureMu.Unlock()
	r.sessionsMu.Lock()
	defer r.sessionsMu.Unlock()

	version := r.version.Load()
	var out []domain.PublishedNodesEntry

	for _, s := range r.sessions {
		if !matchesEndpoint(s.endpointURL, endpointFilter) {
			continue
		}

		s.mu.Lock()
		client := s.client
		connected := client != nil && s.state == ports.SessionConnected && client.Connected()
		for _, sub := range s.subscriptions {
			for _, item := range sub.items {
				if item.state == domain.ItemRemovalRequested || item.state == domain.ItemRemoved {
					continue
				}
				nodeID, ok := r.legacyNodeID(s, item, connected)
				if !ok {
					continue
				}
				out = append(out, domain.PublishedNodesEntry{
					EndpointURL:         s.endpointURL,
					UseSecurity:         s.useSecurity,
					AuthenticationMode:  s.authMode,
					EncryptedCredential: s.encryptedCredential,
					NodeID:              &nodeID,
				})
			}
		}
		s.mu.Unlock()
	}
	return out, version
}

func matchesEndpoint(endpoint, filter string) bool {
	return filter == "" || strings.EqualFold(endpoint, filter)
}

func exportable(state domain.ItemState, includeRemovalPending bool) bool {
	switch state {
	case domain.ItemRemoved:
		return false
	case domain.ItemRemovalRequested:
		return includeRemovalPending
	default:
		return true
	}
}

func groupedNode(sub *Subscription, item *MonitoredItem) domain.OpcNodeEntry {
	node := domain.OpcNodeEntry{ID: item.id.Original}
	if item.id.Kind == domain.NodeIDExpanded && !strings.HasPrefix(item.id.Original, "nsu=") {
		// id came from a separate expanded field; preserve both notations
		node.ExpandedNodeID = fmt.Sprintf("nsu=%s;%s", item.id.NamespaceURI, item.id.Identifier)
	}
	if sub.publishingInterval.Explicit {
		v := sub.publishingInterval.Value
		node.PublishingInterval = &v
	}
	if item.samplingInterval.Explicit {
		v := item.samplingInterval.Value
		node.SamplingInterval = &v
	}
	if item.displayName.Explicit {
		v := item.displayName.Value
		node.DisplayName = &v
	}
	if item.heartbeatInterval.Explicit {
		v := item.heartbeatInterval.Value
		node.HeartbeatInterval = &v
	}
	if item.skipFirst.Explicit {
		v := item.skipFirst.Value
		node.SkipFirst = &v
	}
	return node
}

// legacyNodeID resolves the single textual id for the flat schema. Requires
// the session lock to be held.
func (r *Registry) legacyNodeID(s *Session, item *MonitoredItem, connected bool) (string, bool) {
	if item.id.Kind == domain.NodeIDNumeric {
		return item.id.String(), true
	}
	if !connected {
		return "", false
	}
	index, ok := s.client.NamespaceIndex(item.id.NamespaceURI)
	if !ok {
		r.obs.RecordSkippedNode(s.endpointURL, item.id.String(),
			fmt.Errorf("namespace uri %q not in server table", item.id.NamespaceURI))
		return "", false
	}
	id, err := item.id.ToNumeric(index)
	if err != nil {
		r.obs.RecordSkippedNode(s.endpointURL, item.id.String(), err)
		return "", false
	}
	return id.String(), true
}
