package nodeconfig

import (
	"encoding/json"
	"fmt"

	"github.com/isabella232/iot-edge-opc-publisher/internal/domain"
	"github.com/isabella232/iot-edge-opc-publisher/internal/ports"
)

// Loader flattens the on-disk schemas into the ordered node sequence the
// hierarchy builder consumes.
type Loader struct {
	file *File
	obs  ports.Observability
}

func NewLoader(file *File, obs ports.Observability) *Loader {
	return &Loader{file: file, obs: obs}
}

// Load reads the published-nodes file and returns one FlatNodeConfig per node
// in file order. A missing file yields an empty sequence; a present but
// unparsable file is a hard failure since the process cannot continue with
// unknown state. Individual nodes with unresolvable identifiers are skipped.
func (l *Loader) Load() ([]domain.FlatNodeConfig, error) {
	raw, exists, err := l.file.Read()
	if err != nil {
		return nil, err
	}
	if !exists {
		l.obs.LogInfo("published_nodes_file_absent", ports.Field{Key: "path", Value: l.file.Path()})
		return nil, nil
	}

	var records []domain.PublishedNodesEntry
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", l.file.Path(), err)
	}

	var out []domain.FlatNodeConfig
	for _, rec := range records {
		out = append(out, l.flatten(rec)...)
	}
	return out, nil
}

func (l *Loader) flatten(rec domain.PublishedNodesEntry) []domain.FlatNodeConfig {
	switch {
	case len(rec.OpcNodes) > 0:
		if rec.NodeID != nil {
			l.obs.LogWarn("record_has_both_node_forms",
				ports.Field{Key: "endpoint", Value: rec.EndpointURL},
				ports.Field{Key: "nodeId", Value: *rec.NodeID})
		}
		var out []domain.FlatNodeConfig
		for _, node := range rec.OpcNodes {
			flat, ok := l.flatNode(rec, node)
			if !ok {
				continue
			}
			out = append(out, flat)
		}
		return out
	case rec.NodeID != nil:
		// legacy single-node form: endpoint-level defaults only
		flat, ok := l.flatNode(rec, domain.OpcNodeEntry{ID: *rec.NodeID})
		if !ok {
			return nil
		}
		return []domain.FlatNodeConfig{flat}
	default:
		l.obs.LogWarn("record_without_nodes", ports.Field{Key: "endpoint", Value: rec.EndpointURL})
		return nil
	}
}

func (l *Loader) flatNode(rec domain.PublishedNodesEntry, node domain.OpcNodeEntry) (domain.FlatNodeConfig, bool) {
	id, err := domain.ParseNodeID(node.ID, node.ExpandedNodeID)
	if err != nil {
		l.obs.RecordSkippedNode(rec.EndpointURL, node.ID, err)
		return domain.FlatNodeConfig{}, false
	}
	return domain.FlatNodeConfig{
		ID:                  id,
		OriginalID:          node.ID,
		EndpointURL:         rec.EndpointURL,
		UseSecurity:         rec.UseSecurity,
		PublishingInterval:  node.PublishingInterval,
		SamplingInterval:    node.SamplingInterval,
		DisplayName:         node.DisplayName,
		HeartbeatInterval:   node.HeartbeatInterval,
		SkipFirst:           node.SkipFirst,
		AuthMode:            rec.AuthenticationMode,
		EncryptedCredential: rec.EncryptedCredential,
	}, true
}
