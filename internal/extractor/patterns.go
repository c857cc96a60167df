package extractor

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// Pattern: entity <name> is
	entityPattern = regexp.MustCompile(`(?i)^\s*entity\s+(\w+)\s+is`)

	// Pattern: architecture <name> of <entity> is
	archPattern = regexp.MustCompile(`(?i)^\s*architecture\s+(\w+)\s+of\s+(\w+)\s+is`)

	// Pattern: use <library>.<package>.all
	usePattern = regexp.MustCompile(`(?i)^\s*use\s+([\w.]+)`)

	// Pattern: library <name>
	libraryPattern = regexp.MustCompile(`(?i)^\s*library\s+(\w+)`)

	// Pattern: component <name> is
	componentPattern = regexp.MustCompile(`(?i)^\s*component\s+(\w+)`)

	// Pattern: signal <name> : <type>;
	signalPattern = regexp.MustCompile(`(?i)^\s*signal\s+(\w+)\s*:\s*([^;]+);`)

	// Pattern: <name> : in|out|inout|buffer <type>
	portPattern = regexp.MustCompile(`(?i)^\s*(\w+)\s*:\s*(in|out|inout|buffer)\s+([^;]+?)\s*;?\s*(?:--.*)?$`)

	// Pattern: <label> : for <var> in <range> generate
	generatePattern = regexp.MustCompile(`(?i)^\s*(\w+)\s*:\s*for\s+(\w+)\s+in\s+(.+?)\s+generate`)

	// Pattern: <label> : <component>, alone on the line (port map follows)
	instHeadPattern = regexp.MustCompile(`(?i)^\s*(\w+)\s*:\s*(\w+)\s*$`)

	// Pattern: <label> : <component> generic|port map on one line
	compInstPattern = regexp.MustCompile(`(?i)^\s*(\w+)\s*:\s*(\w+)\s*(?:generic|port)\s+map`)

	// Pattern: port map or generic map opener
	mapPattern = regexp.MustCompile(`(?i)^\s*(?:generic|port)\s+map`)

	// Pattern: <formal> => <actual>
	assocPattern = regexp.MustCompile(`^\s*(\w+)\s*=>\s*([^,]+?)\s*,?\s*$`)

	// Pattern: <name> : <type> := <default>
	genericPattern = regexp.MustCompile(`(?i)^\s*(\w+)\s*:\s*(\w+)\s*:=\s*(\w+)\s*;?\s*$`)

	// Pattern: <target> <= <source>;
	assignPattern = regexp.MustCompile(`^\s*([\w()' +-]+?)\s*<=\s*([^;]+);`)

	// Pattern: end generate [label];
	endGeneratePattern = regexp.MustCompile(`(?i)^\s*end\s+generate\b`)

	// Pattern: (<hi> downto|to <lo>)
	rangePattern = regexp.MustCompile(`(?i)\(\s*(.+?)\s+(downto|to)\s+(.+?)\s*\)`)
)

// matchEntity returns [name] if line declares an entity
func matchEntity(line string) []string {
	if m := entityPattern.FindStringSubmatch(line); m != nil {
		return []string{m[1]}
	}
	return nil
}

// matchArchitecture returns [name, entity] if line declares an architecture
func matchArchitecture(line string) []string {
	if m := archPattern.FindStringSubmatch(line); m != nil {
		return []string{m[1], m[2]}
	}
	return nil
}

// matchUseClause returns [target] if line is a use clause
func matchUseClause(line string) []string {
	if m := usePattern.FindStringSubmatch(line); m != nil {
		return []string{m[1]}
	}
	return nil
}

// matchLibrary returns [name] if line is a library clause
func matchLibrary(line string) []string {
	if m := libraryPattern.FindStringSubmatch(line); m != nil {
		return []string{m[1]}
	}
	return nil
}

// matchComponent returns [name] if line declares a component
func matchComponent(line string) []string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "end component") {
		return nil
	}
	if m := componentPattern.FindStringSubmatch(line); m != nil {
		return []string{m[1]}
	}
	return nil
}

// matchSignal returns [name, type] if line declares a signal
func matchSignal(line string) []string {
	if m := signalPattern.FindStringSubmatch(line); m != nil {
		return []string{m[1], strings.TrimSpace(m[2])}
	}
	return nil
}

// matchPort returns [name, direction, type] if line is a port declaration
func matchPort(line string) []string {
	if m := portPattern.FindStringSubmatch(line); m != nil {
		return []string{m[1], strings.ToLower(m[2]), strings.TrimSpace(m[3])}
	}
	return nil
}

// matchGenerate returns [label, variable, range] if line opens a for-generate
func matchGenerate(line string) []string {
	if m := generatePattern.FindStringSubmatch(line); m != nil {
		return []string{m[1], m[2], m[3]}
	}
	return nil
}

// matchInstanceHead returns [label, component] for a "label : component" line
func matchInstanceHead(line string) []string {
	if m := instHeadPattern.FindStringSubmatch(line); m != nil {
		return []string{m[1], m[2]}
	}
	return nil
}

// matchComponentInstantiation returns [label, component] if line is a component instantiation
func matchComponentInstantiation(line string) []string {
	if m := compInstPattern.FindStringSubmatch(line); m != nil {
		return []string{m[1], m[2]}
	}
	return nil
}

// matchAssociation returns [formal, actual] for a port map association
func matchAssociation(line string) []string {
	if m := assocPattern.FindStringSubmatch(line); m != nil {
		return []string{m[1], m[2]}
	}
	return nil
}

// matchGeneric returns [name, type, default] for a generic declaration
func matchGeneric(line string) []string {
	if m := genericPattern.FindStringSubmatch(line); m != nil {
		return []string{m[1], strings.TrimSpace(m[2]), m[3]}
	}
	return nil
}

// matchAssignment returns [target, source] for a concurrent signal assignment
func matchAssignment(line string) []string {
	if m := assignPattern.FindStringSubmatch(line); m != nil {
		return []string{m[1], strings.TrimSpace(m[2])}
	}
	return nil
}

// CalculateWidth returns the bit width of a scalar or literal-ranged type,
// or 0 when the range depends on a generic.
func CalculateWidth(typ string) int {
	return ResolveWidth(typ, nil)
}

// ResolveWidth is CalculateWidth with generic names substituted from values.
// Bounds of the form "NAME - 1" or "NAME + k" are understood.
func ResolveWidth(typ string, values map[string]int) int {
	t := strings.ToLower(strings.TrimSpace(typ))
	if t == "" {
		return 0
	}
	if t == "std_logic" || t == "std_ulogic" || t == "bit" || t == "boolean" {
		return 1
	}

	if m := rangePattern.FindStringSubmatch(typ); m != nil {
		a, okA := evalBound(m[1], values)
		b, okB := evalBound(m[3], values)
		if !okA || !okB {
			return 0
		}
		if strings.EqualFold(m[2], "downto") {
			return a - b + 1
		}
		return b - a + 1
	}

	if strings.Contains(t, " range ") {
		parts := strings.Fields(t[strings.Index(t, " range ")+len(" range "):])
		if len(parts) == 3 && parts[1] == "to" {
			lo, err1 := strconv.Atoi(parts[0])
			hi, err2 := strconv.Atoi(parts[2])
			if err1 == nil && err2 == nil && hi >= lo {
				return bitsFor(hi - lo)
			}
		}
	}
	return 0
}

func evalBound(expr string, values map[string]int) (int, bool) {
	fields := strings.Fields(expr)
	if len(fields) == 0 {
		return 0, false
	}
	total, ok := term(fields[0], values)
	if !ok {
		return 0, false
	}
	for i := 1; i+1 < len(fields); i += 2 {
		v, ok := term(fields[i+1], values)
		if !ok {
			return 0, false
		}
		switch fields[i] {
		case "+":
			total += v
		case "-":
			total -= v
		default:
			return 0, false
		}
	}
	if len(fields)%2 == 0 {
		return 0, false
	}
	return total, true
}

func term(s string, values map[string]int) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	if v, ok := values[s]; ok {
		return v, true
	}
	return 0, false
}

func bitsFor(maxValue int) int {
	bits := 1
	for (1 << bits) <= maxValue {
		bits++
	}
	return bits
}
