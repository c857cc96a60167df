package facts

// FilterTablesByTier returns a new Tables object containing only the rows that
// belong to the given tier levels. A bus is kept when either end is in the set.
// File, entity and port rows are not tier scoped and are dropped.
func FilterTablesByTier(tables Tables, levels map[int]bool) Tables {
	out := emptyTables()
	if len(levels) == 0 {
		return out
	}
	out.Width = tables.Width

	for _, row := range tables.Tiers {
		if levels[row.Level] {
			out.Tiers = append(out.Tiers, row)
		}
	}
	for _, row := range tables.Instances {
		if levels[row.Tier] {
			out.Instances = append(out.Instances, row)
		}
	}
	for _, row := range tables.Connections {
		if levels[row.Tier] {
			out.Connections = append(out.Connections, row)
		}
	}
	for _, row := range tables.Signals {
		if row.Kind == KindBus && (levels[row.High] || levels[row.Low]) {
			out.Signals = append(out.Signals, row)
		}
	}

	return out
}

// FilterDeltaByTier returns a new Delta containing only rows for the given tiers.
func FilterDeltaByTier(delta Delta, levels map[int]bool) Delta {
	return Delta{
		Added:   FilterTablesByTier(delta.Added, levels),
		Removed: FilterTablesByTier(delta.Removed, levels),
	}
}
