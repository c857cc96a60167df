package facts

import (
	"strings"
	"testing"
)

func TestComputeDeltaAddsAndRemoves(t *testing.T) {
	prev := Tables{
		Entities: []EntityRow{
			{Name: "a", File: "f.vhd", Line: 1},
		},
		Signals: []SignalRow{
			{Name: "x", Kind: KindBus, Width: 16},
		},
	}
	next := Tables{
		Entities: []EntityRow{
			{Name: "b", File: "f.vhd", Line: 3},
		},
		Signals: []SignalRow{
			{Name: "x", Kind: KindBus, Width: 64},
		},
	}

	delta := ComputeDelta(prev, next)

	if len(delta.Added.Entities) != 1 || delta.Added.Entities[0].Name != "b" {
		t.Fatalf("expected entity b added, got %+v", delta.Added.Entities)
	}
	if len(delta.Removed.Entities) != 1 || delta.Removed.Entities[0].Name != "a" {
		t.Fatalf("expected entity a removed, got %+v", delta.Removed.Entities)
	}
	if len(delta.Added.Signals) != 1 || delta.Added.Signals[0].Width != 64 {
		t.Fatalf("expected widened signal added, got %+v", delta.Added.Signals)
	}
	if len(delta.Removed.Signals) != 1 || delta.Removed.Signals[0].Width != 16 {
		t.Fatalf("expected narrow signal removed, got %+v", delta.Removed.Signals)
	}
}

func TestComputeDeltaBetweenWidthsSharingLevels(t *testing.T) {
	// 32 and 64 share L=3 and S=[64,16,4]: only the leaf tier and the
	// primary ports grow.
	delta := ComputeDelta(BuildTables(mustTree(t, 32), nil), BuildTables(mustTree(t, 64), nil))

	if len(delta.Added.Instances) != 32 {
		t.Fatalf("expected 32 added instances, got %d", len(delta.Added.Instances))
	}
	for _, inst := range delta.Added.Instances {
		if !strings.HasPrefix(inst.Name, "pfa_") || inst.Index < 32 {
			t.Fatalf("unexpected added instance %+v", inst)
		}
	}
	if len(delta.Removed.Instances) != 0 {
		t.Fatalf("expected no removed instances, got %+v", delta.Removed.Instances)
	}
	if len(delta.Added.Connections) != 32*5 || len(delta.Removed.Connections) != 0 {
		t.Fatalf("expected only leaf connections added, got +%d -%d",
			len(delta.Added.Connections), len(delta.Removed.Connections))
	}
	if len(delta.Added.Tiers) != 1 || delta.Added.Tiers[0].Count != 63 {
		t.Fatalf("expected the leaf tier row to change, got %+v", delta.Added.Tiers)
	}
	for _, s := range delta.Added.Signals {
		if s.Kind == KindBus {
			t.Fatalf("expected no bus changes, got %+v", s)
		}
	}
}

func TestComputeDeltaIdentical(t *testing.T) {
	tables := BuildTables(mustTree(t, 100), nil)
	if d := ComputeDelta(tables, tables); !d.Empty() {
		t.Fatalf("expected empty delta, got %+v", d)
	}
}
