package tree

import "fmt"

// Tier identifiers for the two boundary tiers.
const (
	LeafID = "pfa"
	TopID  = "top"
)

// BusKind tells which way a bus flows between two adjacent tiers.
type BusKind string

const (
	// Carry flows downward, from tier high to tier low.
	Carry BusKind = "carry_in"
	// Propagate flows upward, from tier low to tier high.
	Propagate BusKind = "prop_out"
)

// Bus is a fixed-width signal array between tier High and tier Low = High-1.
type Bus struct {
	Name    string  `json:"name"`
	Kind    BusKind `json:"kind"`
	High    int     `json:"high"`
	Low     int     `json:"low"`
	Width   int     `json:"width"`
	Generic string  `json:"generic"`

	// Active is the number of entries actually used. It only differs from
	// Width at the leaf boundary, where the bus follows S[0] for tier-1
	// addressing while n-1 leaves plus the bit-0 bypass are wired.
	Active int `json:"active"`
}

// Padding is the count of unused tail entries.
func (b Bus) Padding() int {
	return b.Width - b.Active
}

// TierID names a tier: "top" for tier L, "pfa" for tier 0, "l<i>" otherwise.
func (lv Levels) TierID(i int) string {
	switch i {
	case lv.Count:
		return TopID
	case 0:
		return LeafID
	}
	return fmt.Sprintf("l%d", i)
}

// CarryName is the downward bus between high and high-1.
func (lv Levels) CarryName(high int) string {
	return fmt.Sprintf("%s_to_%s_%s", lv.TierID(high), lv.TierID(high-1), Carry)
}

// PropName is the upward bus between high-1 and high.
func (lv Levels) PropName(high int) string {
	return fmt.Sprintf("%s_to_%s_%s", lv.TierID(high-1), lv.TierID(high), Propagate)
}

// BoundaryBuses returns the carry and propagate buses of the boundary between
// tier high and tier high-1. Both are sized to the lower tier.
func (lv Levels) BoundaryBuses(high int) (carry, prop Bus) {
	low := high - 1
	width := lv.Size(low)
	active := width
	if low == 0 {
		active = lv.Width
	}
	carry = Bus{
		Name:    lv.CarryName(high),
		Kind:    Carry,
		High:    high,
		Low:     low,
		Width:   width,
		Generic: lv.Generic(low),
		Active:  active,
	}
	prop = carry
	prop.Name = lv.PropName(high)
	prop.Kind = Propagate
	return carry, prop
}

// Buses lists every boundary bus from the top boundary down to the leaf
// boundary, carry before propagate.
func (lv Levels) Buses() []Bus {
	buses := make([]Bus, 0, 2*lv.Count)
	for high := lv.Count; high >= 1; high-- {
		carry, prop := lv.BoundaryBuses(high)
		buses = append(buses, carry, prop)
	}
	return buses
}
