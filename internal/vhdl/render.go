package vhdl

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/tree"
)

const loopVar = "i"

var (
	coreTemplate    = template.Must(template.Must(template.New("core").Parse(attributionTmpl)).Parse(coreTmpl))
	wrapperTemplate = template.Must(template.Must(template.New("wrapper").Parse(attributionTmpl)).Parse(wrapperTmpl))
)

type coreData struct {
	FileName   string
	Entity     string
	N          int
	Header     Header
	Generics   string
	Components string
	Signals    string
	Assigns    string
	Body       string
}

type wrapperData struct {
	FileName string
	Entity   string
	Core     string
	N        int
	Header   Header
}

// RenderCore writes the arithmetic core for t.
func RenderCore(t *tree.Tree, opts Options) (Module, error) {
	if t == nil {
		return Module{}, fmt.Errorf("render core: nil tree")
	}
	if opts.Style == "" {
		opts.Style = StyleGenerate
	}
	if opts.Style != StyleGenerate && opts.Style != StyleUnrolled {
		return Module{}, fmt.Errorf("render core: unknown style %q", opts.Style)
	}

	n := t.Levels.Width
	data := coreData{
		FileName:   opts.CoreFile(n),
		Entity:     opts.CoreEntity(n),
		N:          n,
		Header:     opts.Header,
		Generics:   renderGenerics(t.Levels),
		Components: renderComponents(tree.LeafPrimitive(), tree.NodePrimitive()),
		Signals:    renderBuses(t),
		Assigns:    renderAssigns(t),
		Body:       renderTiers(t, opts.Style),
	}

	var out bytes.Buffer
	if err := coreTemplate.Execute(&out, data); err != nil {
		return Module{}, fmt.Errorf("render core: %w", err)
	}
	return Module{
		Kind:     CoreKind,
		Entity:   data.Entity,
		FileName: data.FileName,
		Text:     out.String(),
	}, nil
}

// RenderWrapper writes the registered wrapper. It depends on n only.
func RenderWrapper(n int, opts Options) (Module, error) {
	data := wrapperData{
		FileName: opts.WrapperFile(n),
		Entity:   opts.WrapperEntity(n),
		Core:     opts.CoreEntity(n),
		N:        n,
		Header:   opts.Header,
	}

	var out bytes.Buffer
	if err := wrapperTemplate.Execute(&out, data); err != nil {
		return Module{}, fmt.Errorf("render wrapper: %w", err)
	}
	return Module{
		Kind:     WrapperKind,
		Entity:   data.Entity,
		FileName: data.FileName,
		Text:     out.String(),
	}, nil
}

type generic struct {
	name    string
	value   int
	comment string
}

func renderGenerics(lv tree.Levels) string {
	generics := []generic{
		{"G_n", lv.Width, "Input length is n"},
		{"G_levels", lv.Count, "number of levels of invert look-ahead logic below the top level"},
	}
	for i, size := range lv.Sizes {
		g := generic{name: lv.Generic(i), value: size}
		switch i {
		case 0:
			g.comment = "should be equal to 4^(G_levels) and the smallest power of 4 larger than G_n"
		case 1:
			g.comment = "G_l0_size / 4, and so on."
		}
		generics = append(generics, g)
	}

	width := 0
	for _, g := range generics {
		width = max(width, len(g.name))
	}

	lines := make([]string, len(generics))
	for i, g := range generics {
		line := fmt.Sprintf("    %-*s : integer := %d", width, g.name, g.value)
		if i != len(generics)-1 {
			line += ";"
		}
		if g.comment != "" {
			line += " -- " + g.comment
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

func renderComponents(prims ...tree.Primitive) string {
	var b strings.Builder
	for n, p := range prims {
		if n > 0 {
			b.WriteString("\n")
		}
		width := portWidth(p.Ports)
		fmt.Fprintf(&b, "  component %s is\n    port (\n", p.Name)
		for i, port := range p.Ports {
			sep := ";"
			if i == len(p.Ports)-1 {
				sep = ""
			}
			fmt.Fprintf(&b, "      %-*s : %-5s std_logic%s\n", width, port.Name, port.Dir, sep)
		}
		b.WriteString("    );\n  end component;\n")
	}
	return b.String()
}

func portWidth(ports []tree.Port) int {
	width := 0
	for _, p := range ports {
		width = max(width, len(p.Name))
	}
	return width
}

func tierTitle(lv tree.Levels, level int) string {
	switch level {
	case 0:
		return "L0 PFAs"
	case lv.Top():
		return "top ILA"
	}
	return fmt.Sprintf("L%d ILAs", level)
}

func busComment(lv tree.Levels, b tree.Bus) string {
	if b.Low == 0 {
		if b.Kind == tree.Carry {
			return "(C_i) carry in signals to L0 PFAs"
		}
		return "(P_i) propagate signals from L0 PFAs"
	}
	if b.Kind == tree.Carry {
		return fmt.Sprintf("(C_4i..4i+3) carry in signals from %s to %s", tierTitle(lv, b.High), tierTitle(lv, b.Low))
	}
	return fmt.Sprintf("(P_4i..4i+3) group propagate signals from %s to %s", tierTitle(lv, b.Low), tierTitle(lv, b.High))
}

// renderBuses declares one carry/propagate pair per boundary, top first.
func renderBuses(t *tree.Tree) string {
	var b strings.Builder
	for i := 0; i+1 < len(t.Buses); i += 2 {
		if i > 0 {
			b.WriteString("\n")
		}
		pair := t.Buses[i : i+2]
		width := max(len(pair[0].Name), len(pair[1].Name))
		if pad := pair[0].Padding(); pad > 0 {
			fmt.Fprintf(&b, "  -- entries G_n .. %s - 1 (%d of %d) are padding: the bus follows %s so that\n",
				pair[0].Generic, pad, pair[0].Width, pair[0].Generic)
			b.WriteString("  -- tier-1 indexing stays uniform. Only G_n entries are wired to PFAs or the bit-0 bypass.\n")
		}
		for _, bus := range pair {
			fmt.Fprintf(&b, "  signal %-*s : std_logic_vector(%s - 1 downto 0); -- %s\n",
				width, bus.Name, bus.Generic, busComment(t.Levels, bus))
		}
	}
	return b.String()
}

func renderAssigns(t *tree.Tree) string {
	type assign struct{ target, source, comment string }
	assigns := []assign{{tree.SignSignal, "input_sign", "take sign as input directly from port"}}
	for _, a := range t.Bypass {
		assigns = append(assigns, assign{a.Target.String(), a.Source.String(), a.Comment})
	}
	assigns = append(assigns, assign{"prop_out", tree.TopPropSignal, ""})

	tw, sw := 0, 0
	for _, a := range assigns {
		tw = max(tw, len(a.target))
		sw = max(sw, len(a.source)+1)
	}

	var b strings.Builder
	for _, a := range assigns {
		if a.comment == "" {
			fmt.Fprintf(&b, "  %-*s <= %s;\n", tw, a.target, a.source)
			continue
		}
		fmt.Fprintf(&b, "  %-*s <= %-*s -- %s\n", tw, a.target, sw, a.source+";", a.comment)
	}
	return b.String()
}

func renderTiers(t *tree.Tree, style Style) string {
	var b strings.Builder
	leaf := t.Leaf()
	if style == StyleGenerate {
		b.WriteString("  -- note that the generation limit is G_n, not G_l0_size.\n")
		b.WriteString("  -- the rest of the PFAs aren't needed, but G_l0_size is needed for other areas because of indexing.\n")
		b.WriteString("  -- however, unnecessary things will be optimized away during implementation.\n")
		writeLoop(&b, leaf)
		for _, tier := range t.Interior() {
			b.WriteString("\n")
			writeLoop(&b, tier)
		}
	} else {
		fmt.Fprintf(&b, "  -- %s: bits %d to %d (bit 0 is bypassed above)\n", leaf.Label, leaf.First, leaf.Last())
		writeInstances(&b, leaf)
		for _, tier := range t.Interior() {
			fmt.Fprintf(&b, "\n  -- %s: %d nodes\n", tier.Label, tier.Count)
			writeInstances(&b, tier)
		}
	}
	b.WriteString("\n")
	writeInstances(&b, t.Top())
	return b.String()
}

// writeLoop emits a tier as a for-generate over its index range, with each
// port written as its index expression in the loop variable.
func writeLoop(b *strings.Builder, tier tree.Tier) {
	gen := "gen_" + tier.Label
	fmt.Fprintf(b, "  %s : for %s in %d to (%s - 1) generate\n", gen, loopVar, tier.First, tier.Bound)
	fmt.Fprintf(b, "    %s_%s : %s\n", tier.Label, loopVar, tier.Component)
	b.WriteString("      port map (\n")
	width := patternWidth(tier.Ports)
	for i, p := range tier.Ports {
		sep := ","
		if i == len(tier.Ports)-1 {
			sep = ""
		}
		fmt.Fprintf(b, "        %-*s => %s%s\n", width, p.Port, patternExpr(p), sep)
	}
	b.WriteString("      );\n")
	fmt.Fprintf(b, "  end generate %s;\n", gen)
}

func writeInstances(b *strings.Builder, tier tree.Tier) {
	width := patternWidth(tier.Ports)
	for _, inst := range tier.Instances {
		fmt.Fprintf(b, "  %s : %s\n", inst.Name, tier.Component)
		b.WriteString("    port map (\n")
		for i, bind := range inst.Bindings {
			sep := ","
			if i == len(inst.Bindings)-1 {
				sep = ""
			}
			fmt.Fprintf(b, "      %-*s => %s%s\n", width, bind.Port, bind.Ref, sep)
		}
		b.WriteString("    );\n")
	}
}

func patternWidth(ports []tree.PortPattern) int {
	width := 0
	for _, p := range ports {
		width = max(width, len(p.Port))
	}
	return width
}

func patternExpr(p tree.PortPattern) string {
	if !p.Indexed {
		return p.Signal
	}
	var idx string
	switch {
	case p.Scale == 0:
		idx = fmt.Sprintf("%d", p.Offset)
	case p.Scale == 1:
		idx = loopVar
	default:
		idx = fmt.Sprintf("%s * %d", loopVar, p.Scale)
	}
	if p.Scale != 0 && p.Offset != 0 {
		idx = fmt.Sprintf("%s + %d", idx, p.Offset)
	}
	return fmt.Sprintf("%s(%s)", p.Signal, idx)
}
