package extractor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/tree"
	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/vhdl"
)

func renderCore(t *testing.T, n int, style vhdl.Style) vhdl.Module {
	t.Helper()
	tr, err := tree.ForWidth(n)
	require.NoError(t, err)
	opts := vhdl.DefaultOptions()
	opts.Style = style
	m, err := vhdl.RenderCore(tr, opts)
	require.NoError(t, err)
	return m
}

func TestExtractCoreGenerate(t *testing.T) {
	m := renderCore(t, 32, vhdl.StyleGenerate)
	facts, err := New().ExtractText(m.FileName, m.Bytes())
	require.NoError(t, err)

	require.Len(t, facts.Entities, 1)
	ent := facts.Entities[0]
	assert.Equal(t, "abs_2c_look_ahead_32", ent.Name)
	assert.Equal(t, map[string]int{
		"G_n": 32, "G_levels": 3, "G_l0_size": 64, "G_l1_size": 16, "G_l2_size": 4,
	}, ent.GenericValues())

	require.Len(t, ent.Ports, 4)
	assert.Equal(t, "input_sign", ent.Ports[0].Name)
	assert.Equal(t, "out", ent.Ports[2].Direction)
	assert.Equal(t, 32, ResolveWidth(ent.Ports[2].Type, ent.GenericValues()))

	require.Len(t, facts.Architectures, 1)
	assert.Equal(t, "abs_2c_look_ahead_32", facts.Architectures[0].EntityName)

	require.Len(t, facts.Components, 2)
	assert.Equal(t, "partial_full_adder", facts.Components[0].Name)
	assert.Equal(t, "invert_look_ahead", facts.Components[1].Name)
	assert.Len(t, facts.Components[1].Ports, 10)

	assert.Len(t, facts.Signals, 8)
	widths := map[string]int{}
	for _, s := range facts.Signals {
		widths[s.Name] = ResolveWidth(s.Type, ent.GenericValues())
	}
	assert.Equal(t, 4, widths["top_to_l2_carry_in"])
	assert.Equal(t, 16, widths["l2_to_l1_carry_in"])
	assert.Equal(t, 64, widths["pfa_to_l1_prop_out"])
	assert.Equal(t, 1, widths["sign"])

	assert.Len(t, facts.Assignments, 4)
	assert.Equal(t, "output(0)", facts.Assignments[1].Target)
	assert.Equal(t, "input(0)", facts.Assignments[1].Source)

	require.Len(t, facts.Generates, 3)
	lo, hi, ok := facts.Generates[0].Bounds(ent.GenericValues())
	require.True(t, ok)
	assert.Equal(t, "gen_pfa", facts.Generates[0].Label)
	assert.Equal(t, 1, lo)
	assert.Equal(t, 31, hi)

	require.Len(t, facts.Instances, 4)
	assert.Equal(t, "gen_pfa", facts.Instances[0].Generate)
	top := facts.Instances[3]
	assert.Equal(t, "top_ila", top.Label)
	assert.Empty(t, top.Generate)
	require.Len(t, top.Ports, 10)
	assert.Equal(t, Association{Formal: "c_in", Actual: "input(0)"}, top.Ports[0])
	assert.Equal(t, Association{Formal: "prop_group", Actual: "top_prop_out"}, top.Ports[9])
}

func TestExtractCoreUnrolled(t *testing.T) {
	m := renderCore(t, 32, vhdl.StyleUnrolled)
	facts, err := New().ExtractText(m.FileName, m.Bytes())
	require.NoError(t, err)

	assert.Empty(t, facts.Generates)
	assert.Len(t, facts.Instances, 52)
	assert.Len(t, facts.InstancesOf("partial_full_adder"), 31)
	assert.Len(t, facts.InstancesOf("invert_look_ahead"), 21)

	last := facts.InstancesOf("partial_full_adder")[30]
	assert.Equal(t, "pfa_31", last.Label)
	assert.Contains(t, last.Ports, Association{Formal: "a_i", Actual: "input(31)"})
}

func TestExtractWrapper(t *testing.T) {
	m, err := vhdl.RenderWrapper(64, vhdl.DefaultOptions())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), m.FileName)
	require.NoError(t, os.WriteFile(path, m.Bytes(), 0o644))

	facts, err := New().Extract(path)
	require.NoError(t, err)

	ent, ok := facts.Entity("abs_2c_wrapper_64")
	require.True(t, ok)
	var output Port
	for _, p := range ent.Ports {
		if p.Name == "output" {
			output = p
		}
	}
	assert.Equal(t, 65, ResolveWidth(output.Type, ent.GenericValues()))

	require.Len(t, facts.Instances, 3)
	reg := facts.Instances[1]
	assert.Equal(t, "storage_register", reg.Component)
	assert.Equal(t, []Association{{Formal: "G_n", Actual: "G_n"}}, reg.Generics)
	assert.Len(t, reg.Ports, 5)

	core := facts.InstancesOf("abs_2c_look_ahead_64")
	require.Len(t, core, 1)
	assert.Contains(t, core[0].Ports, Association{Formal: "prop_out", Actual: "open"})
	require.Len(t, facts.Assignments, 1)
	assert.Equal(t, "output(output'left)", facts.Assignments[0].Target)
	assert.Equal(t, "input_sign", facts.Assignments[0].Source)
}

func TestExtractRejectsUnclosedGenerate(t *testing.T) {
	src := `entity e is
end e;
architecture rtl of e is
begin
  gen_x : for i in 0 to 3 generate
end architecture rtl;
`
	_, err := New().ExtractText("bad.vhd", []byte(src))
	require.Error(t, err)
}

func TestExtractMissingFile(t *testing.T) {
	_, err := New().Extract(filepath.Join(t.TempDir(), "missing.vhd"))
	require.Error(t, err)
}
