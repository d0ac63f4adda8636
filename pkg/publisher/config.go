package publisher

import (
	"github.com/isabella232/iot-edge-opc-publisher/internal/app/config"
	"github.com/isabella232/iot-edge-opc-publisher/internal/domain"
	"github.com/isabella232/iot-edge-opc-publisher/internal/ports"
	"github.com/isabella232/iot-edge-opc-publisher/internal/registry"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// DefaultsConfig holds the process-wide item field defaults.
	DefaultsConfig = config.DefaultsConfig
	// NodesConfig locates the published-nodes file.
	NodesConfig = config.NodesConfig
	// AuditConfig configures the optional Postgres audit trail.
	AuditConfig = config.AuditConfig
	// PersistConfig controls the persistence cadence.
	PersistConfig = config.PersistConfig

	// PublishedNodesEntry is one record of the published-nodes file.
	PublishedNodesEntry = domain.PublishedNodesEntry
	// OpcNodeEntry is one node inside a grouped record.
	OpcNodeEntry = domain.OpcNodeEntry
	// FlatNodeConfig is one node to publish in flattened form.
	FlatNodeConfig = domain.FlatNodeConfig
	// CanonicalID is the normalized node identifier.
	CanonicalID = domain.CanonicalID
	// AuthMode selects session authentication.
	AuthMode = domain.AuthMode

	// Counts is a census of the live hierarchy.
	Counts = registry.Counts
	// Registry is the live session hierarchy.
	Registry = registry.Registry

	// Observability emits metrics/logs for the configuration core.
	Observability = ports.Observability
	// Field is a structured log field.
	Field = ports.Field
	// SessionClient is the capability a live protocol session exposes.
	SessionClient = ports.SessionClient
	// Credential is a decrypted username/password pair.
	Credential = ports.Credential
	// Decryptor turns encrypted credentials into usable ones.
	Decryptor = ports.Decryptor
	// AuditSink consumes batches of configuration-change audit events.
	AuditSink = ports.AuditSink
	// AuditEvent records one configuration change.
	AuditEvent = domain.AuditEvent
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// ParseNodeID normalizes the three textual node identifier notations.
func ParseNodeID(original, expanded string) (CanonicalID, error) {
	return domain.ParseNodeID(original, expanded)
}

// ErrMissingCredential is returned when an endpoint needs a credential the
// file does not carry.
var ErrMissingCredential = registry.ErrMissingCredential
