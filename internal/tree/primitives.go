package tree

import "fmt"

// Direction of a primitive port.
type Direction string

const (
	In  Direction = "in"
	Out Direction = "out"
)

// Component names of the externally supplied primitives wired by the tree.
const (
	LeafComponent = "partial_full_adder"
	NodeComponent = "invert_look_ahead"
)

// Module-level signals the tree binds to.
const (
	SignSignal    = "sign"
	InputSignal   = "input"
	OutputSignal  = "output"
	TopPropSignal = "top_prop_out"
)

// Port is one scalar std_logic port of a primitive.
type Port struct {
	Name string    `json:"name"`
	Dir  Direction `json:"direction"`
}

// Primitive is the fixed port contract of an external component.
type Primitive struct {
	Name  string `json:"name"`
	Ports []Port `json:"ports"`
}

// LeafPrimitive is the per-bit sign/magnitude adder.
func LeafPrimitive() Primitive {
	return Primitive{
		Name: LeafComponent,
		Ports: []Port{
			{"a_sign", In},
			{"a_i", In},
			{"carry_in", In},
			{"sum_out", Out},
			{"prop_out", Out},
		},
	}
}

// NodePrimitive is the radix-4 invert look-ahead node.
func NodePrimitive() Primitive {
	ports := []Port{{"c_in", In}}
	for j := 0; j < Radix; j++ {
		ports = append(ports, Port{propInPort(j), In})
	}
	for j := 0; j < Radix; j++ {
		ports = append(ports, Port{carryOutPort(j), Out})
	}
	ports = append(ports, Port{"prop_group", Out})
	return Primitive{Name: NodeComponent, Ports: ports}
}

func propInPort(j int) string   { return fmt.Sprintf("prop_in_%d", j) }
func carryOutPort(j int) string { return fmt.Sprintf("c_out_%d", j) }
