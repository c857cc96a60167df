package facts

import "strconv"

// Delta captures added and removed fact rows between two snapshots.
type Delta struct {
	Added   Tables `json:"added"`
	Removed Tables `json:"removed"`
}

// ComputeDelta computes row-level additions and removals between two snapshots,
// typically the same core at two widths.
func ComputeDelta(prev, next Tables) Delta {
	return Delta{
		Added:   diffTables(prev, next),
		Removed: diffTables(next, prev),
	}
}

// Empty reports whether the delta carries no rows.
func (d Delta) Empty() bool {
	return d.Added.rows() == 0 && d.Removed.rows() == 0
}

func (t Tables) rows() int {
	return len(t.Files) + len(t.Entities) + len(t.Ports) + len(t.Signals) +
		len(t.Tiers) + len(t.Instances) + len(t.Connections) + len(t.Assignments)
}

func diffTables(from, to Tables) Tables {
	out := emptyTables()
	out.Width = to.Width

	out.Files = diffRows(from.Files, to.Files, func(r FileRow) string {
		return r.Path + "|" + intKey(r.Entities)
	})
	out.Entities = diffRows(from.Entities, to.Entities, func(r EntityRow) string {
		return r.Name + "|" + r.File + "|" + intKey(r.Line)
	})
	out.Ports = diffRows(from.Ports, to.Ports, func(r PortRow) string {
		return r.Entity + "|" + r.Name + "|" + r.Direction + "|" + r.Type + "|" + intKey(r.Width) + "|" + r.File
	})
	out.Signals = diffRows(from.Signals, to.Signals, func(r SignalRow) string {
		return r.Name + "|" + r.Kind + "|" + intKey(r.Width) + "|" + intKey(r.Active) + "|" + r.Generic
	})
	out.Tiers = diffRows(from.Tiers, to.Tiers, func(r TierRow) string {
		return r.Label + "|" + r.Component + "|" + intKey(r.Level) + "|" + intKey(r.First) + "|" + intKey(r.Count) + "|" + intKey(r.Size)
	})
	out.Instances = diffRows(from.Instances, to.Instances, func(r InstanceRow) string {
		return r.Name + "|" + r.Component + "|" + intKey(r.Tier) + "|" + intKey(r.Index)
	})
	out.Connections = diffRows(from.Connections, to.Connections, func(r ConnectionRow) string {
		return r.Instance + "|" + r.Port + "|" + r.Direction + "|" + r.Signal + "|" + intKey(r.Element)
	})
	out.Assignments = diffRows(from.Assignments, to.Assignments, func(r AssignmentRow) string {
		return r.Target + "|" + intKey(r.TargetElement) + "|" + r.Source + "|" + intKey(r.SourceElement)
	})

	return out
}

func diffRows[T any](from, to []T, key func(T) string) []T {
	fromSet := make(map[string]struct{}, len(from))
	for _, row := range from {
		fromSet[key(row)] = struct{}{}
	}
	var diff []T
	for _, row := range to {
		if _, ok := fromSet[key(row)]; !ok {
			diff = append(diff, row)
		}
	}
	if diff == nil {
		diff = []T{}
	}
	return diff
}

func intKey(v int) string {
	return strconv.Itoa(v)
}
