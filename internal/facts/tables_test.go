package facts

import (
	"testing"

	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/extractor"
	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/tree"
)

func mustTree(t *testing.T, n int) *tree.Tree {
	t.Helper()
	tr, err := tree.ForWidth(n)
	if err != nil {
		t.Fatalf("ForWidth(%d): %v", n, err)
	}
	return tr
}

func TestBuildTablesPopulatesCoreRelations(t *testing.T) {
	tables := BuildTables(mustTree(t, 32), nil)

	if tables.Width != 32 {
		t.Fatalf("expected width 32, got %d", tables.Width)
	}
	// input, output, sign, top_prop_out and three carry/propagate pairs
	if len(tables.Signals) != 10 {
		t.Fatalf("expected 10 signal rows, got %d", len(tables.Signals))
	}
	if len(tables.Tiers) != 4 {
		t.Fatalf("expected 4 tier rows, got %d", len(tables.Tiers))
	}
	if len(tables.Instances) != 52 {
		t.Fatalf("expected 52 instance rows, got %d", len(tables.Instances))
	}
	// 31 leaves with 5 ports, 21 nodes with 10 ports
	if len(tables.Connections) != 31*5+21*10 {
		t.Fatalf("expected %d connection rows, got %d", 31*5+21*10, len(tables.Connections))
	}
	if len(tables.Assignments) != 2 {
		t.Fatalf("expected 2 assignment rows, got %d", len(tables.Assignments))
	}
	if len(tables.Files) != 0 || len(tables.Entities) != 0 {
		t.Fatalf("expected no file rows without readback, got %#v", tables.Files)
	}

	for _, tier := range tables.Tiers {
		if tier.Kind == string(tree.LeafTier) && tier.Size != 64 {
			t.Fatalf("expected leaf tier size 64, got %d", tier.Size)
		}
		if tier.Kind == string(tree.TopTier) && tier.Size != 1 {
			t.Fatalf("expected top tier size 1, got %d", tier.Size)
		}
	}
}

func TestBuildTablesScalarElements(t *testing.T) {
	tables := BuildTables(mustTree(t, 32), nil)

	var found bool
	for _, c := range tables.Connections {
		if c.Instance == "top_ila" && c.Port == "prop_group" {
			found = true
			if c.Signal != tree.TopPropSignal || c.Element != -1 {
				t.Fatalf("expected top prop_group on scalar %s, got %+v", tree.TopPropSignal, c)
			}
		}
	}
	if !found {
		t.Fatalf("top_ila prop_group connection missing")
	}
}

func TestBuildTablesFromReadback(t *testing.T) {
	files := []extractor.FileFacts{
		{
			File: "b.vhd",
			Entities: []extractor.Entity{{
				Name:     "wrap",
				Line:     3,
				Generics: []extractor.Generic{{Name: "G_n", Type: "integer", Default: "32"}},
				Ports: []extractor.Port{
					{Name: "output", Direction: "out", Type: "std_logic_vector(G_n downto 0)", Line: 5},
				},
			}},
		},
		{File: "a.vhd"},
	}

	tables := BuildTables(mustTree(t, 32), files)

	if len(tables.Files) != 2 || tables.Files[0].Path != "a.vhd" {
		t.Fatalf("expected sorted file rows, got %#v", tables.Files)
	}
	if len(tables.Entities) != 1 || tables.Entities[0].Name != "wrap" {
		t.Fatalf("expected entity wrap, got %#v", tables.Entities)
	}
	if len(tables.Ports) != 1 || tables.Ports[0].Width != 33 {
		t.Fatalf("expected output port width 33, got %#v", tables.Ports)
	}
}

func TestBuildTablesNilTree(t *testing.T) {
	tables := BuildTables(nil, nil)
	if tables.Signals == nil || len(tables.Signals) != 0 {
		t.Fatalf("expected empty non-nil relations, got %#v", tables.Signals)
	}
}
