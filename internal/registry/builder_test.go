package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isabella232/iot-edge-opc-publisher/internal/domain"
)

func flat(t *testing.T, endpoint, nodeID string, publishing *int) domain.FlatNodeConfig {
	t.Helper()
	id, err := domain.ParseNodeID(nodeID, "")
	require.NoError(t, err)
	return domain.FlatNodeConfig{
		ID:                 id,
		OriginalID:         nodeID,
		EndpointURL:        endpoint,
		PublishingInterval: publishing,
	}
}

func intp(v int) *int       { return &v }
func strp(v string) *string { return &v }
func boolp(v bool) *bool    { return &v }

func TestBuildGroupsByEndpointAndInterval(t *testing.T) {
	obs := newStubObs()
	r := New(Defaults{PublishingInterval: 1000, SamplingInterval: 1000}, obs)

	entries := []domain.FlatNodeConfig{
		flat(t, "opc.tcp://plc1:4840", "ns=2;i=1001", intp(1000)),
		flat(t, "opc.tcp://plc1:4840", "ns=2;i=1002", intp(1000)),
		flat(t, "opc.tcp://plc1:4840", "ns=2;i=1003", intp(500)),
	}
	require.NoError(t, r.Build(entries))

	counts := r.Counts()
	assert.Equal(t, 1, counts.ConfiguredSessions)
	assert.Equal(t, 2, counts.ConfiguredSubscriptions)
	assert.Equal(t, 3, counts.ConfiguredItems)
	assert.Equal(t, uint64(3), r.Version())

	sessions := r.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "opc.tcp://plc1:4840", sessions[0].EndpointURL())
}

func TestBuildIsDeterministic(t *testing.T) {
	entries := []domain.FlatNodeConfig{
		flat(t, "opc.tcp://b:4840", "ns=2;i=1", intp(500)),
		flat(t, "opc.tcp://a:4840", "ns=2;i=2", nil),
		flat(t, "opc.tcp://a:4840", "ns=2;i=3", intp(500)),
		flat(t, "opc.tcp://b:4840", "ns=2;i=4", intp(500)),
	}

	r1 := New(Defaults{}, newStubObs())
	r2 := New(Defaults{}, newStubObs())
	require.NoError(t, r1.Build(entries))
	require.NoError(t, r2.Build(entries))

	snap1, _ := r1.ExportGrouped("", true)
	snap2, _ := r2.ExportGrouped("", true)
	assert.Equal(t, snap1, snap2)
}

func TestBuildUnsetIntervalIsItsOwnGroup(t *testing.T) {
	r := New(Defaults{PublishingInterval: 1000}, newStubObs())
	entries := []domain.FlatNodeConfig{
		flat(t, "opc.tcp://plc1:4840", "ns=2;i=1", intp(1000)),
		flat(t, "opc.tcp://plc1:4840", "ns=2;i=2", nil),
	}
	require.NoError(t, r.Build(entries))

	// explicit 1000 and unset land in distinct subscriptions even though the
	// default would also be 1000
	assert.Equal(t, 2, r.Counts().ConfiguredSubscriptions)
}

func TestBuildMissingCredentialIsFatal(t *testing.T) {
	r := New(Defaults{}, newStubObs())
	e := flat(t, "opc.tcp://plc1:4840", "ns=2;i=1", nil)
	e.AuthMode = domain.AuthUsernamePassword

	err := r.Build([]domain.FlatNodeConfig{e})
	require.ErrorIs(t, err, ErrMissingCredential)
	assert.Equal(t, uint64(0), r.Version())
}

func TestBuildWarnsOnDivergentEndpointSettings(t *testing.T) {
	obs := newStubObs()
	r := New(Defaults{}, obs)

	e1 := flat(t, "opc.tcp://plc1:4840", "ns=2;i=1", nil)
	e2 := flat(t, "opc.tcp://plc1:4840", "ns=2;i=2", nil)
	e2.UseSecurity = true

	require.NoError(t, r.Build([]domain.FlatNodeConfig{e1, e2}))

	assert.Equal(t, float64(1), obs.counters["publisher_endpoint_divergence_total"])
	require.Len(t, obs.warns, 1)
	assert.Equal(t, "endpoint_settings_divergence", obs.warns[0])

	// first entry wins
	assert.False(t, r.Sessions()[0].UseSecurity())
}

func TestBuildDeduplicatesWithinSubscription(t *testing.T) {
	r := New(Defaults{}, newStubObs())
	entries := []domain.FlatNodeConfig{
		flat(t, "opc.tcp://plc1:4840", "ns=2;i=1", intp(1000)),
		flat(t, "opc.tcp://plc1:4840", "ns=2;i=1", intp(1000)),
		flat(t, "opc.tcp://plc1:4840", "ns=2;i=1", intp(500)),
	}
	require.NoError(t, r.Build(entries))

	assert.Equal(t, 2, r.Counts().ConfiguredItems)
	assert.Equal(t, uint64(2), r.Version())
}

func TestBuildSkipsUnresolvedIdentifiers(t *testing.T) {
	obs := newStubObs()
	r := New(Defaults{}, obs)

	good := flat(t, "opc.tcp://plc1:4840", "ns=2;i=1", nil)
	bad := domain.FlatNodeConfig{
		OriginalID:  "not-a-node-id",
		EndpointURL: "opc.tcp://plc1:4840",
	}

	require.NoError(t, r.Build([]domain.FlatNodeConfig{good, bad}))
	assert.Equal(t, 1, r.Counts().ConfiguredItems)
	assert.Equal(t, uint64(1), r.Version())
	assert.Equal(t, 1, obs.skipped)
}

func TestVersionAdvancesAcrossBuilds(t *testing.T) {
	r := New(Defaults{}, newStubObs())

	require.NoError(t, r.Build([]domain.FlatNodeConfig{
		flat(t, "opc.tcp://plc1:4840", "ns=2;i=1", nil),
	}))
	require.NoError(t, r.Build([]domain.FlatNodeConfig{
		flat(t, "opc.tcp://plc1:4840", "ns=2;i=2", nil),
		flat(t, "opc.tcp://plc2:4840", "ns=2;i=1", nil),
	}))

	assert.Equal(t, uint64(3), r.Version())
	assert.Equal(t, 2, r.Counts().ConfiguredSessions)
}
