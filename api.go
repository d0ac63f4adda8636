package opcpublisher

import (
	base "github.com/isabella232/iot-edge-opc-publisher/pkg/publisher"
)

// Re-exported errors for convenience.
var ErrMissingCredential = base.ErrMissingCredential

// Type aliases so consumers can import the module root directly.
type (
	Config              = base.Config
	DefaultsConfig      = base.DefaultsConfig
	NodesConfig         = base.NodesConfig
	AuditConfig         = base.AuditConfig
	PersistConfig       = base.PersistConfig
	PublishedNodesEntry = base.PublishedNodesEntry
	OpcNodeEntry        = base.OpcNodeEntry
	FlatNodeConfig      = base.FlatNodeConfig
	CanonicalID         = base.CanonicalID
	AuthMode            = base.AuthMode
	Counts              = base.Counts
	Registry            = base.Registry
	Runtime             = base.Runtime
	Option              = base.Option
	SessionFactory      = base.SessionFactory
	SessionDialer       = base.SessionDialer
	Observability       = base.Observability
	Field               = base.Field
	SessionClient       = base.SessionClient
	Credential          = base.Credential
	Decryptor           = base.Decryptor
	AuditSink           = base.AuditSink
	AuditEvent          = base.AuditEvent
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// ParseNodeID normalizes the three textual node identifier notations.
func ParseNodeID(original, expanded string) (CanonicalID, error) {
	return base.ParseNodeID(original, expanded)
}

// Runtime construction and options.
func New(cfg *Config, opts ...Option) (*Runtime, error) {
	return base.New(cfg, opts...)
}

func WithObservability(obs Observability) Option {
	return base.WithObservability(obs)
}

func WithSessionFactory(f SessionFactory) Option {
	return base.WithSessionFactory(f)
}

func WithDecryptor(d Decryptor) Option {
	return base.WithDecryptor(d)
}

func WithAuditSink(s AuditSink) Option {
	return base.WithAuditSink(s)
}
