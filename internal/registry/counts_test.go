package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isabella232/iot-edge-opc-publisher/internal/domain"
	"github.com/isabella232/iot-edge-opc-publisher/internal/ports"
)

func TestCountsTrackLifecycle(t *testing.T) {
	r := New(Defaults{}, newStubObs())
	require.NoError(t, r.Build([]domain.FlatNodeConfig{
		flat(t, "opc.tcp://plc1:4840", "ns=2;i=1", intp(1000)),
		flat(t, "opc.tcp://plc1:4840", "ns=2;i=2", intp(1000)),
		flat(t, "opc.tcp://plc2:4840", "ns=2;i=3", intp(500)),
	}))

	counts := r.Counts()
	assert.Equal(t, 2, counts.ConfiguredSessions)
	assert.Equal(t, 0, counts.ConnectedSessions)
	assert.Equal(t, 2, counts.ConfiguredSubscriptions)
	assert.Equal(t, 0, counts.ConnectedSubscriptions)
	assert.Equal(t, 3, counts.ConfiguredItems)
	assert.Equal(t, 0, counts.MonitoredItems)

	require.True(t, r.SetSessionState("opc.tcp://plc1:4840", ports.SessionConnected))
	require.True(t, r.MarkMonitored("opc.tcp://plc1:4840", "ns=2;i=1"))
	require.True(t, r.RequestRemoval("opc.tcp://plc1:4840", "ns=2;i=2"))

	counts = r.Counts()
	assert.Equal(t, 1, counts.ConnectedSessions)
	assert.Equal(t, 1, counts.ConnectedSubscriptions)
	assert.Equal(t, 1, counts.MonitoredItems)
	assert.Equal(t, 1, counts.RemovalPendingItems)

	// removed items vanish from the census entirely
	require.True(t, r.MarkRemoved("opc.tcp://plc1:4840", "ns=2;i=2"))
	counts = r.Counts()
	assert.Equal(t, 0, counts.RemovalPendingItems)
	assert.Equal(t, 2, counts.ConfiguredItems)
}

func TestSetSessionStateUnknownEndpoint(t *testing.T) {
	r := New(Defaults{}, newStubObs())
	assert.False(t, r.SetSessionState("opc.tcp://nowhere:4840", ports.SessionConnected))
	assert.False(t, r.MarkMonitored("opc.tcp://nowhere:4840", "ns=2;i=1"))
}
