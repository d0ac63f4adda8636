package nodeconfig

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/isabella232/iot-edge-opc-publisher/internal/domain"
)

type fakeSource struct {
	version  uint64
	snapshot []domain.PublishedNodesEntry
	exports  int
}

func (f *fakeSource) Version() uint64 { return f.version }

func (f *fakeSource) ExportGrouped(endpointFilter string, includeRemovalPending bool) ([]domain.PublishedNodesEntry, uint64) {
	f.exports++
	return f.snapshot, f.version
}

func TestPersistWritesAndBecomesIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publishednodes.json")
	file := NewFile(path)
	src := &fakeSource{
		version: 3,
		snapshot: []domain.PublishedNodesEntry{
			{EndpointURL: "opc.tcp://plc-1:4840", OpcNodes: []domain.OpcNodeEntry{{ID: "ns=2;i=1"}}},
		},
	}
	p := NewPersister(file, src, &stubObs{})

	wrote, err := p.Persist()
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if !wrote {
		t.Fatal("first call must write")
	}
	if p.LastWritten() != 3 {
		t.Fatalf("marker = %d, want 3", p.LastWritten())
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var records []domain.PublishedNodesEntry
	if err := json.Unmarshal(raw, &records); err != nil {
		t.Fatalf("written file must be valid JSON: %v", err)
	}
	if len(records) != 1 || records[0].EndpointURL != "opc.tcp://plc-1:4840" {
		t.Fatalf("unexpected written content: %+v", records)
	}

	wrote, err = p.Persist()
	if err != nil {
		t.Fatalf("second Persist: %v", err)
	}
	if wrote {
		t.Fatal("unchanged version must be a no-op")
	}
	if src.exports != 1 {
		t.Fatalf("no-op call must not re-export, exports = %d", src.exports)
	}
}

func TestPersistWritesAgainAfterVersionBump(t *testing.T) {
	file := NewFile(filepath.Join(t.TempDir(), "publishednodes.json"))
	src := &fakeSource{version: 1}
	p := NewPersister(file, src, &stubObs{})

	if wrote, err := p.Persist(); err != nil || !wrote {
		t.Fatalf("first Persist: wrote=%v err=%v", wrote, err)
	}
	src.version = 2
	if wrote, err := p.Persist(); err != nil || !wrote {
		t.Fatalf("bumped version must write again: wrote=%v err=%v", wrote, err)
	}
	if p.LastWritten() != 2 {
		t.Fatalf("marker = %d, want 2", p.LastWritten())
	}
}

func TestPersistFailureKeepsMarkerAndRetries(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	// parent of the nodes file is a regular file, so every write fails
	file := NewFile(filepath.Join(blocker, "publishednodes.json"))
	src := &fakeSource{version: 5}
	obs := &stubObs{}
	p := NewPersister(file, src, obs)

	if wrote, err := p.Persist(); err == nil || wrote {
		t.Fatalf("write must fail: wrote=%v err=%v", wrote, err)
	}
	if p.LastWritten() != 0 {
		t.Fatalf("failed write must not move the marker, got %d", p.LastWritten())
	}
	if obs.errors != 1 {
		t.Fatalf("errors = %d, want 1", obs.errors)
	}

	// same version is still pending after a failure
	if wrote, err := p.Persist(); err == nil || wrote {
		t.Fatalf("retry must attempt the write again: wrote=%v err=%v", wrote, err)
	}
	if src.exports != 2 {
		t.Fatalf("exports = %d, want 2", src.exports)
	}
}
