package domain

import (
	"fmt"
	"strings"

	"github.com/gopcua/opcua/ua"
)

// NodeIDKind tags the two canonical identifier forms.
type NodeIDKind uint8

const (
	// NodeIDNumeric is a node id with a numeric namespace index ("ns=2;i=1001").
	NodeIDNumeric NodeIDKind = iota
	// NodeIDExpanded carries a namespace URI instead of an index ("nsu=http://x;s=Temp").
	NodeIDExpanded
)

func (k NodeIDKind) String() string {
	if k == NodeIDExpanded {
		return "expanded"
	}
	return "numeric"
}

// CanonicalID is the normalized form of a remote node identifier. Numeric ids
// keep the parsed node id; expanded ids keep the namespace URI and the inner
// identifier text ("s=Temp") so they can be rebound to a numeric namespace
// index once a session's namespace table is known.
type CanonicalID struct {
	Kind         NodeIDKind
	NodeID       *ua.NodeID // numeric form only
	NamespaceURI string     // expanded form only
	Identifier   string     // expanded form only, e.g. "s=Temp"
	Original     string     // textual form as configured, for round-tripping
}

// IsZero reports whether the identifier was never resolved.
func (c CanonicalID) IsZero() bool {
	return c.NodeID == nil && c.NamespaceURI == ""
}

func (c CanonicalID) String() string {
	if c.Original != "" {
		return c.Original
	}
	if c.Kind == NodeIDExpanded {
		return fmt.Sprintf("nsu=%s;%s", c.NamespaceURI, c.Identifier)
	}
	if c.NodeID != nil {
		return c.NodeID.String()
	}
	return ""
}

// ToNumeric rebinds an expanded identifier to the given namespace index.
// Numeric identifiers are returned as-is.
func (c CanonicalID) ToNumeric(index uint16) (*ua.NodeID, error) {
	if c.Kind == NodeIDNumeric {
		if c.NodeID == nil {
			return nil, fmt.Errorf("node id %q: not resolved", c.Original)
		}
		return c.NodeID, nil
	}
	id, err := ua.ParseNodeID(fmt.Sprintf("ns=%d;%s", index, c.Identifier))
	if err != nil {
		return nil, fmt.Errorf("rebind %q to ns=%d: %w", c.Original, index, err)
	}
	return id, nil
}

// ParseNodeID normalizes the three textual notations into a CanonicalID.
// Rule order: an explicit expanded id wins; otherwise an "nsu=" prefix on the
// original id selects the expanded form; otherwise the id must parse as a
// plain node id. Failures are recoverable errors, never panics.
func ParseNodeID(original, expanded string) (CanonicalID, error) {
	if expanded != "" {
		return parseExpanded(expanded, original)
	}
	if strings.HasPrefix(original, "nsu=") {
		return parseExpanded(original, original)
	}
	id, err := ua.ParseNodeID(original)
	if err != nil {
		return CanonicalID{}, fmt.Errorf("parse node id %q: %w", original, err)
	}
	return CanonicalID{
		Kind:     NodeIDNumeric,
		NodeID:   id,
		Original: original,
	}, nil
}

// identifier type markers valid after the namespace segment of an expanded id
var idTypeMarkers = []string{";i=", ";s=", ";g=", ";b="}

func parseExpanded(s, original string) (CanonicalID, error) {
	body, ok := strings.CutPrefix(s, "nsu=")
	if !ok {
		return CanonicalID{}, fmt.Errorf("parse expanded node id %q: missing nsu= prefix", s)
	}

	cut := -1
	for _, marker := range idTypeMarkers {
		if i := strings.Index(body, marker); i >= 0 && (cut < 0 || i < cut) {
			cut = i
		}
	}
	if cut <= 0 {
		return CanonicalID{}, fmt.Errorf("parse expanded node id %q: no identifier segment", s)
	}

	uri, ident := body[:cut], body[cut+1:]
	if _, err := ua.ParseNodeID(ident); err != nil {
		return CanonicalID{}, fmt.Errorf("parse expanded node id %q: %w", s, err)
	}
	if original == "" {
		original = s
	}
	return CanonicalID{
		Kind:         NodeIDExpanded,
		NamespaceURI: uri,
		Identifier:   ident,
		Original:     original,
	}, nil
}
