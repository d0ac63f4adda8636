package ports

// ConnectionState is the connectivity of one endpoint session. It is owned and
// updated by the protocol-client layer; the registry only reads it.
type ConnectionState uint8

const (
	SessionDisconnected ConnectionState = iota
	SessionConnecting
	SessionConnected
)

func (s ConnectionState) String() string {
	switch s {
	case SessionConnecting:
		return "connecting"
	case SessionConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// SessionClient is the capability a live protocol session exposes to the
// configuration core. NamespaceIndex is only meaningful while Connected
// reports true; callers must treat a false second return as "no table".
type SessionClient interface {
	Connected() bool
	NamespaceIndex(uri string) (uint16, bool)
}
