package facts

import (
	"sort"

	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/extractor"
	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/tree"
)

// Tables is the relational fact model of one generated design.
// Each slice is a relation (table) with flat rows.
type Tables struct {
	Width       int             `json:"width"`
	Files       []FileRow       `json:"files"`
	Entities    []EntityRow     `json:"entities"`
	Ports       []PortRow       `json:"ports"`
	Signals     []SignalRow     `json:"signals"`
	Tiers       []TierRow       `json:"tiers"`
	Instances   []InstanceRow   `json:"instances"`
	Connections []ConnectionRow `json:"connections"`
	Assignments []AssignmentRow `json:"assignments"`
}

type FileRow struct {
	Path     string `json:"path"`
	Entities int    `json:"entities"`
}

type EntityRow struct {
	Name string `json:"name"`
	File string `json:"file"`
	Line int    `json:"line"`
}

type PortRow struct {
	Entity    string `json:"entity"`
	Name      string `json:"name"`
	Direction string `json:"direction"`
	Type      string `json:"type"`
	Width     int    `json:"width"`
	File      string `json:"file"`
	Line      int    `json:"line"`
}

// Signal kinds.
const (
	KindPort   = "port"
	KindScalar = "scalar"
	KindBus    = "bus"
)

// SignalRow is one net of the core. High and Low are the tier levels a bus
// connects; both are -1 for ports and scalars.
type SignalRow struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Width   int    `json:"width"`
	Active  int    `json:"active"`
	High    int    `json:"high"`
	Low     int    `json:"low"`
	Generic string `json:"generic"`
}

type TierRow struct {
	Level     int    `json:"level"`
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Label     string `json:"label"`
	Component string `json:"component"`
	First     int    `json:"first"`
	Count     int    `json:"count"`
	Size      int    `json:"size"`
}

type InstanceRow struct {
	Name      string `json:"name"`
	Component string `json:"component"`
	Tier      int    `json:"tier"`
	Index     int    `json:"index"`
}

// ConnectionRow is one port binding. Element is -1 for scalar signals.
type ConnectionRow struct {
	Instance  string `json:"instance"`
	Tier      int    `json:"tier"`
	Index     int    `json:"index"`
	Port      string `json:"port"`
	Direction string `json:"direction"`
	Signal    string `json:"signal"`
	Element   int    `json:"element"`
}

type AssignmentRow struct {
	Target        string `json:"target"`
	TargetElement int    `json:"target_element"`
	Source        string `json:"source"`
	SourceElement int    `json:"source_element"`
}

// BuildTables converts a tree and the readback of its rendered files into a
// normalized relational model. files may be empty.
func BuildTables(t *tree.Tree, files []extractor.FileFacts) Tables {
	tables := emptyTables()
	if t == nil {
		return tables
	}
	lv := t.Levels
	tables.Width = lv.Width

	tables.Signals = append(tables.Signals,
		SignalRow{Name: tree.InputSignal, Kind: KindPort, Width: lv.Width, Active: lv.Width, High: -1, Low: -1, Generic: "G_n"},
		SignalRow{Name: tree.OutputSignal, Kind: KindPort, Width: lv.Width, Active: lv.Width, High: -1, Low: -1, Generic: "G_n"},
		SignalRow{Name: tree.SignSignal, Kind: KindScalar, Width: 1, Active: 1, High: -1, Low: -1},
		SignalRow{Name: tree.TopPropSignal, Kind: KindScalar, Width: 1, Active: 1, High: -1, Low: -1},
	)
	for _, b := range t.Buses {
		tables.Signals = append(tables.Signals, SignalRow{
			Name:    b.Name,
			Kind:    KindBus,
			Width:   b.Width,
			Active:  b.Active,
			High:    b.High,
			Low:     b.Low,
			Generic: b.Generic,
		})
	}

	for _, tier := range t.Tiers {
		tables.Tiers = append(tables.Tiers, TierRow{
			Level:     tier.Level,
			ID:        tier.ID,
			Kind:      string(tier.Kind),
			Label:     tier.Label,
			Component: tier.Component,
			First:     tier.First,
			Count:     tier.Count,
			Size:      lv.Size(tier.Level),
		})
		for _, inst := range tier.Instances {
			tables.Instances = append(tables.Instances, InstanceRow{
				Name:      inst.Name,
				Component: tier.Component,
				Tier:      inst.Tier,
				Index:     inst.Index,
			})
			for _, b := range inst.Bindings {
				tables.Connections = append(tables.Connections, ConnectionRow{
					Instance:  inst.Name,
					Tier:      inst.Tier,
					Index:     inst.Index,
					Port:      b.Port,
					Direction: string(b.Dir),
					Signal:    b.Ref.Signal,
					Element:   element(b.Ref),
				})
			}
		}
	}

	for _, a := range t.Bypass {
		tables.Assignments = append(tables.Assignments, AssignmentRow{
			Target:        a.Target.Signal,
			TargetElement: element(a.Target),
			Source:        a.Source.Signal,
			SourceElement: element(a.Source),
		})
	}

	for _, f := range files {
		tables.Files = append(tables.Files, FileRow{Path: f.File, Entities: len(f.Entities)})
		for _, e := range f.Entities {
			tables.Entities = append(tables.Entities, EntityRow{
				Name: e.Name,
				File: f.File,
				Line: e.Line,
			})
			values := e.GenericValues()
			for _, p := range e.Ports {
				tables.Ports = append(tables.Ports, PortRow{
					Entity:    e.Name,
					Name:      p.Name,
					Direction: p.Direction,
					Type:      p.Type,
					Width:     extractor.ResolveWidth(p.Type, values),
					File:      f.File,
					Line:      p.Line,
				})
			}
		}
	}

	sort.Slice(tables.Files, func(i, j int) bool { return tables.Files[i].Path < tables.Files[j].Path })

	return tables
}

func element(r tree.Ref) int {
	if !r.Indexed {
		return -1
	}
	return r.Element
}

func emptyTables() Tables {
	return Tables{
		Files:       []FileRow{},
		Entities:    []EntityRow{},
		Ports:       []PortRow{},
		Signals:     []SignalRow{},
		Tiers:       []TierRow{},
		Instances:   []InstanceRow{},
		Connections: []ConnectionRow{},
		Assignments: []AssignmentRow{},
	}
}
