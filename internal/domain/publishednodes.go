package domain

// OpcNodeEntry is one node inside a grouped published-nodes record. Pointer
// fields are omitted entirely when the value was never explicitly configured,
// so a reader re-applies its own defaults.
type OpcNodeEntry struct {
	ID                 string  `json:"id"`
	ExpandedNodeID     string  `json:"expandedNodeId,omitempty"`
	PublishingInterval *int    `json:"publishingInterval,omitempty"`
	SamplingInterval   *int    `json:"samplingInterval,omitempty"`
	DisplayName        *string `json:"displayName,omitempty"`
	HeartbeatInterval  *int    `json:"heartbeatInterval,omitempty"`
	SkipFirst          *bool   `json:"skipFirst,omitempty"`
}

// PublishedNodesEntry is one record of the published-nodes file. The grouped
// schema populates OpcNodes; the flat/legacy schema populates NodeID instead.
// Exactly one of the two is set per record.
type PublishedNodesEntry struct {
	EndpointURL         string         `json:"endpointUrl"`
	UseSecurity         bool           `json:"useSecurity"`
	AuthenticationMode  AuthMode       `json:"authenticationMode"`
	EncryptedCredential *string        `json:"encryptedCredential,omitempty"`
	NodeID              *string        `json:"nodeId,omitempty"`
	OpcNodes            []OpcNodeEntry `json:"opcNodes,omitempty"`
}
