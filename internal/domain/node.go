package domain

import (
	"encoding/json"
	"fmt"
)

// AuthMode selects how a session authenticates against its endpoint.
type AuthMode uint8

const (
	AuthAnonymous AuthMode = iota
	AuthUsernamePassword
	AuthCertificate
)

func (m AuthMode) String() string {
	switch m {
	case AuthUsernamePassword:
		return "UsernamePassword"
	case AuthCertificate:
		return "Certificate"
	default:
		return "Anonymous"
	}
}

func (m AuthMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *AuthMode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "", "Anonymous":
		*m = AuthAnonymous
	case "UsernamePassword":
		*m = AuthUsernamePassword
	case "Certificate":
		*m = AuthCertificate
	default:
		return fmt.Errorf("unknown authentication mode %q", s)
	}
	return nil
}

// ItemState is the monitoring lifecycle of a single item.
type ItemState uint8

const (
	ItemConfigured ItemState = iota
	ItemMonitored
	ItemRemovalRequested
	ItemRemoved
)

func (s ItemState) String() string {
	switch s {
	case ItemMonitored:
		return "monitored"
	case ItemRemovalRequested:
		return "removal_requested"
	case ItemRemoved:
		return "removed"
	default:
		return "configured"
	}
}

// OptInt is an optional integer carrying explicit-vs-default provenance.
// Explicit values came from the configuration file and must survive export;
// default values are re-derived by readers and are omitted on export.
type OptInt struct {
	Value    int
	Explicit bool
}

// OptString is an optional string with provenance.
type OptString struct {
	Value    string
	Explicit bool
}

// OptBool is an optional bool with provenance.
type OptBool struct {
	Value    bool
	Explicit bool
}

// FlatNodeConfig is one node to publish, as read from the configuration file.
// Optional fields stay nil when absent; defaults are applied downstream when
// the hierarchy is built, never here.
type FlatNodeConfig struct {
	ID                  CanonicalID
	OriginalID          string
	EndpointURL         string
	UseSecurity         bool
	PublishingInterval  *int
	SamplingInterval    *int
	DisplayName         *string
	HeartbeatInterval   *int
	SkipFirst           *bool
	AuthMode            AuthMode
	EncryptedCredential *string
}
