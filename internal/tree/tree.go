package tree

// =============================================================================
// TREE: ONE INDEX RULE, THREE KINDS OF TIER
// =============================================================================
//
// Every non-leaf node k wires the same fan:
//
//	carry-in      <- element k      of the carry bus from the tier above
//	prop_in_j     <- element 4k + j of the propagate bus from the tier below
//	c_out_j       -> element 4k + j of the carry bus to the tier below
//	prop_group    -> element k      of the propagate bus to the tier above
//
// The top node is the same fan with k = 0. Only its carry-in (the select bit,
// input(0)) and its group output (top_prop_out) are bound to module signals
// instead of a bus. The leaf tier is a 1:1 map from bit index to bus element.
//
// A tier stores its wiring twice: as PortPatterns (element = Scale*k + Offset)
// for loop-style rendering, and as resolved Instances for anything that wants
// one descriptor per instance. Both come from the same patterns, so they can
// never disagree.
// =============================================================================

import (
	"errors"
	"fmt"
)

var (
	ErrIndexOutOfRange = errors.New("bus index out of range")
	ErrDuplicateSignal = errors.New("duplicate signal name")
	ErrWidthMismatch   = errors.New("bus width does not match tier size")
	ErrMalformedLevels = errors.New("malformed level sizes")
)

// TierKind separates the two boundary tiers from the interior ones.
type TierKind string

const (
	LeafTier     TierKind = "leaf"
	InteriorTier TierKind = "interior"
	TopTier      TierKind = "top"
)

// PortPattern binds one primitive port for every instance of a tier.
// Indexed ports wire element Scale*k + Offset of Signal for instance k.
type PortPattern struct {
	Port    string    `json:"port"`
	Dir     Direction `json:"direction"`
	Signal  string    `json:"signal"`
	Indexed bool      `json:"indexed"`
	Scale   int       `json:"scale"`
	Offset  int       `json:"offset"`
}

// Element returns the bus element wired for instance k.
func (p PortPattern) Element(k int) int {
	return p.Scale*k + p.Offset
}

// Ref points at a scalar signal or one element of a vector signal.
type Ref struct {
	Signal  string `json:"signal"`
	Indexed bool   `json:"indexed"`
	Element int    `json:"element"`
}

func (r Ref) String() string {
	if !r.Indexed {
		return r.Signal
	}
	return fmt.Sprintf("%s(%d)", r.Signal, r.Element)
}

// Binding is a port resolved for a single instance.
type Binding struct {
	Port string    `json:"port"`
	Dir  Direction `json:"direction"`
	Ref  Ref       `json:"ref"`
}

// Instance is one replicated primitive, fully determined by (Tier, Index).
type Instance struct {
	Name     string    `json:"name"`
	Tier     int       `json:"tier"`
	Index    int       `json:"index"`
	Bindings []Binding `json:"bindings"`
}

// Assign is a direct concurrent assignment Target <= Source.
type Assign struct {
	Target  Ref    `json:"target"`
	Source  Ref    `json:"source"`
	Comment string `json:"comment,omitempty"`
}

// Tier is one level of the tree.
type Tier struct {
	Level     int      `json:"level"`
	ID        string   `json:"id"`
	Kind      TierKind `json:"kind"`
	Label     string   `json:"label"`
	Component string   `json:"component"`

	// First and Count give the instance index range [First, First+Count).
	First int `json:"first"`
	Count int `json:"count"`

	// Bound is the generic the instance range is written against
	// (G_n for the leaf tier, G_l<i>_size for interior tiers).
	Bound string `json:"bound,omitempty"`

	Ports     []PortPattern `json:"ports"`
	Instances []Instance    `json:"instances"`
}

// Last returns the highest instance index of the tier.
func (t Tier) Last() int {
	return t.First + t.Count - 1
}

// Tree is the full wiring plan for one operand width.
type Tree struct {
	Levels Levels   `json:"levels"`
	Buses  []Bus    `json:"buses"`
	Tiers  []Tier   `json:"tiers"`
	Bypass []Assign `json:"bypass"`
}

// Build derives the complete tree for the given levels and checks it.
func Build(lv Levels) (*Tree, error) {
	if err := lv.Validate(); err != nil {
		return nil, err
	}

	t := &Tree{
		Levels: lv,
		Buses:  lv.Buses(),
		Tiers:  make([]Tier, 0, lv.Count+1),
	}

	t.Tiers = append(t.Tiers, leafTier(lv))
	for i := 1; i < lv.Count; i++ {
		t.Tiers = append(t.Tiers, interiorTier(lv, i))
	}
	t.Tiers = append(t.Tiers, topTier(lv))

	for i := range t.Tiers {
		t.Tiers[i].Instances = resolve(t.Tiers[i])
	}

	// Bit 0 has no leaf: it is never flipped and feeds tier 1 directly.
	bit0 := Ref{Signal: InputSignal, Indexed: true, Element: 0}
	t.Bypass = []Assign{
		{
			Target:  Ref{Signal: OutputSignal, Indexed: true, Element: 0},
			Source:  bit0,
			Comment: "LSB of output always equals LSB of input, since this bit is never flipped",
		},
		{
			Target:  Ref{Signal: lv.PropName(1), Indexed: true, Element: 0},
			Source:  bit0,
			Comment: "need to pass this because it doesn't have a PFA",
		},
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// ForWidth is PlanLevels followed by Build.
func ForWidth(n int) (*Tree, error) {
	lv, err := PlanLevels(n)
	if err != nil {
		return nil, err
	}
	return Build(lv)
}

func leafTier(lv Levels) Tier {
	carry := lv.CarryName(1)
	prop := lv.PropName(1)
	return Tier{
		Level:     0,
		ID:        LeafID,
		Kind:      LeafTier,
		Label:     LeafID,
		Component: LeafComponent,
		First:     1,
		Count:     lv.Width - 1,
		Bound:     "G_n",
		Ports: []PortPattern{
			{Port: "a_sign", Dir: In, Signal: SignSignal},
			{Port: "a_i", Dir: In, Signal: InputSignal, Indexed: true, Scale: 1},
			{Port: "carry_in", Dir: In, Signal: carry, Indexed: true, Scale: 1},
			{Port: "sum_out", Dir: Out, Signal: OutputSignal, Indexed: true, Scale: 1},
			{Port: "prop_out", Dir: Out, Signal: prop, Indexed: true, Scale: 1},
		},
	}
}

func interiorTier(lv Levels, i int) Tier {
	cin := PortPattern{Port: "c_in", Dir: In, Signal: lv.CarryName(i + 1), Indexed: true, Scale: 1}
	group := PortPattern{Port: "prop_group", Dir: Out, Signal: lv.PropName(i + 1), Indexed: true, Scale: 1}
	id := lv.TierID(i)
	return Tier{
		Level:     i,
		ID:        id,
		Kind:      InteriorTier,
		Label:     id + "_ila",
		Component: NodeComponent,
		First:     0,
		Count:     lv.Size(i),
		Bound:     lv.Generic(i),
		Ports:     fanPorts(cin, group, lv.CarryName(i), lv.PropName(i)),
	}
}

func topTier(lv Levels) Tier {
	top := lv.Top()
	cin := PortPattern{Port: "c_in", Dir: In, Signal: InputSignal, Indexed: true}
	group := PortPattern{Port: "prop_group", Dir: Out, Signal: TopPropSignal}
	return Tier{
		Level:     top,
		ID:        TopID,
		Kind:      TopTier,
		Label:     TopID + "_ila",
		Component: NodeComponent,
		First:     0,
		Count:     1,
		Ports:     fanPorts(cin, group, lv.CarryName(top), lv.PropName(top)),
	}
}

// fanPorts lays out the node ports in primitive order. The k <-> 4k..4k+3
// relation lives here and nowhere else.
func fanPorts(cin, group PortPattern, carryDown, propUp string) []PortPattern {
	ports := make([]PortPattern, 0, 2+2*Radix)
	ports = append(ports, cin)
	for j := 0; j < Radix; j++ {
		ports = append(ports, PortPattern{
			Port: propInPort(j), Dir: In, Signal: propUp, Indexed: true, Scale: Radix, Offset: j,
		})
	}
	for j := 0; j < Radix; j++ {
		ports = append(ports, PortPattern{
			Port: carryOutPort(j), Dir: Out, Signal: carryDown, Indexed: true, Scale: Radix, Offset: j,
		})
	}
	return append(ports, group)
}

func resolve(tier Tier) []Instance {
	instances := make([]Instance, 0, tier.Count)
	for k := tier.First; k <= tier.Last(); k++ {
		name := tier.Label
		if tier.Kind != TopTier {
			name = fmt.Sprintf("%s_%d", tier.Label, k)
		}
		inst := Instance{
			Name:     name,
			Tier:     tier.Level,
			Index:    k,
			Bindings: make([]Binding, len(tier.Ports)),
		}
		for j, p := range tier.Ports {
			ref := Ref{Signal: p.Signal, Indexed: p.Indexed}
			if p.Indexed {
				ref.Element = p.Element(k)
			}
			inst.Bindings[j] = Binding{Port: p.Port, Dir: p.Dir, Ref: ref}
		}
		instances = append(instances, inst)
	}
	return instances
}

// Leaf returns the leaf tier.
func (t *Tree) Leaf() Tier {
	return t.Tiers[0]
}

// Top returns the single-node top tier.
func (t *Tree) Top() Tier {
	return t.Tiers[len(t.Tiers)-1]
}

// Interior returns tiers 1..L-1 in ascending order.
func (t *Tree) Interior() []Tier {
	return t.Tiers[1 : len(t.Tiers)-1]
}

// Bus looks up a boundary bus by name.
func (t *Tree) Bus(name string) (Bus, bool) {
	for _, b := range t.Buses {
		if b.Name == name {
			return b, true
		}
	}
	return Bus{}, false
}

// InstanceCount is the number of primitives in the whole tree.
func (t *Tree) InstanceCount() int {
	total := 0
	for _, tier := range t.Tiers {
		total += tier.Count
	}
	return total
}

// signalWidths maps every indexed signal the tree touches to its width.
func (t *Tree) signalWidths() map[string]int {
	widths := map[string]int{
		InputSignal:  t.Levels.Width,
		OutputSignal: t.Levels.Width,
	}
	for _, b := range t.Buses {
		widths[b.Name] = b.Width
	}
	return widths
}

// Validate checks the level sizes, bus naming and widths, and that every
// bound element lies inside its signal.
func (t *Tree) Validate() error {
	lv := t.Levels
	if len(lv.Sizes) != lv.Count || lv.Count == 0 {
		return fmt.Errorf("%d sizes for %d levels: %w", len(lv.Sizes), lv.Count, ErrMalformedLevels)
	}
	if lv.Sizes[0] < lv.Width || lv.Sizes[0]/Radix >= lv.Width {
		return fmt.Errorf("S[0]=%d is not the least power of 4 >= %d: %w", lv.Sizes[0], lv.Width, ErrMalformedLevels)
	}
	for i := 0; i+1 < lv.Count; i++ {
		if lv.Sizes[i] != Radix*lv.Sizes[i+1] {
			return fmt.Errorf("S[%d]=%d, S[%d]=%d: %w", i, lv.Sizes[i], i+1, lv.Sizes[i+1], ErrMalformedLevels)
		}
	}
	if lv.Sizes[lv.Count-1] != Radix {
		return fmt.Errorf("S[L-1]=%d: %w", lv.Sizes[lv.Count-1], ErrMalformedLevels)
	}

	seen := make(map[string]bool, len(t.Buses)+4)
	for _, reserved := range []string{SignSignal, InputSignal, OutputSignal, TopPropSignal} {
		seen[reserved] = true
	}
	for _, b := range t.Buses {
		if seen[b.Name] {
			return fmt.Errorf("%s: %w", b.Name, ErrDuplicateSignal)
		}
		seen[b.Name] = true
		if b.Width != lv.Size(b.Low) {
			return fmt.Errorf("%s has width %d, tier %d has %d: %w", b.Name, b.Width, b.Low, lv.Size(b.Low), ErrWidthMismatch)
		}
	}

	widths := t.signalWidths()
	check := func(where string, r Ref) error {
		if !r.Indexed {
			return nil
		}
		w, ok := widths[r.Signal]
		if !ok {
			return fmt.Errorf("%s: unknown signal %s", where, r.Signal)
		}
		if r.Element < 0 || r.Element >= w {
			return fmt.Errorf("%s: %s outside [0, %d]: %w", where, r, w-1, ErrIndexOutOfRange)
		}
		return nil
	}
	for _, tier := range t.Tiers {
		for _, inst := range tier.Instances {
			for _, b := range inst.Bindings {
				if err := check(inst.Name+"."+b.Port, b.Ref); err != nil {
					return err
				}
			}
		}
	}
	for _, a := range t.Bypass {
		if err := check("bypass", a.Target); err != nil {
			return err
		}
		if err := check("bypass", a.Source); err != nil {
			return err
		}
	}
	return nil
}
