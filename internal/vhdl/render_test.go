package vhdl

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/tree"
)

func mustTree(t *testing.T, n int) *tree.Tree {
	t.Helper()
	tr, err := tree.ForWidth(n)
	require.NoError(t, err)
	return tr
}

func TestRenderCoreGenerateStyle32(t *testing.T) {
	m, err := RenderCore(mustTree(t, 32), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, CoreKind, m.Kind)
	assert.Equal(t, "abs_2c_look_ahead_32", m.Entity)
	assert.Equal(t, "abs_2c_look_ahead_32.vhd", m.FileName)

	for _, want := range []string{
		"entity abs_2c_look_ahead_32 is",
		"    G_n       : integer := 32; -- Input length is n",
		"    G_levels  : integer := 3;",
		"    G_l0_size : integer := 64; -- should be equal to 4^(G_levels)",
		"    G_l1_size : integer := 16; -- G_l0_size / 4, and so on.",
		"    G_l2_size : integer := 4\n  );",
		"  signal top_to_l2_carry_in : std_logic_vector(G_l2_size - 1 downto 0);",
		"  signal l2_to_top_prop_out : std_logic_vector(G_l2_size - 1 downto 0);",
		"  signal l2_to_l1_carry_in : std_logic_vector(G_l1_size - 1 downto 0);",
		"  signal l1_to_pfa_carry_in : std_logic_vector(G_l0_size - 1 downto 0);",
		"  signal pfa_to_l1_prop_out : std_logic_vector(G_l0_size - 1 downto 0);",
		"are padding",
		"  output(0)             <= input(0);",
		"  pfa_to_l1_prop_out(0) <= input(0);",
		"  prop_out              <= top_prop_out;",
		"  gen_pfa : for i in 1 to (G_n - 1) generate",
		"        carry_in => l1_to_pfa_carry_in(i),",
		"  gen_l1_ila : for i in 0 to (G_l1_size - 1) generate",
		"        c_in       => l2_to_l1_carry_in(i),",
		"        prop_in_0  => pfa_to_l1_prop_out(i * 4),",
		"        prop_in_3  => pfa_to_l1_prop_out(i * 4 + 3),",
		"        c_out_2    => l1_to_pfa_carry_in(i * 4 + 2),",
		"        prop_group => l1_to_l2_prop_out(i)",
		"  gen_l2_ila : for i in 0 to (G_l2_size - 1) generate",
		"        c_in       => top_to_l2_carry_in(i),",
		"        prop_group => l2_to_top_prop_out(i)",
		"  top_ila : invert_look_ahead",
		"      c_in       => input(0),",
		"      prop_in_3  => l2_to_top_prop_out(3),",
		"      c_out_0    => top_to_l2_carry_in(0),",
		"      prop_group => top_prop_out",
		"end architecture behavioral;",
		"-- License:     GPL v3",
	} {
		assert.Contains(t, m.Text, want)
	}
	assert.NotContains(t, m.Text, "-- Authors:")
	assert.Equal(t, 1, strings.Count(m.Text, "top_ila : invert_look_ahead"))

	// The core port is G_n bits wide; only the wrapper adds the sign bit.
	assert.Contains(t, m.Text, "    output     : out   std_logic_vector(G_n - 1 downto 0);")
	assert.Contains(t, m.Text, "-- [output]: Two's complement of the signed input ([G_n] bits).")
	assert.NotContains(t, m.Text, "+ 1 bits")
}

func TestRenderCoreUnrolledStyle(t *testing.T) {
	opts := DefaultOptions()
	opts.Style = StyleUnrolled
	m, err := RenderCore(mustTree(t, 32), opts)
	require.NoError(t, err)

	assert.NotContains(t, m.Text, "generate")
	assert.Equal(t, 31, strings.Count(m.Text, ": partial_full_adder\n"))
	assert.Equal(t, 21, strings.Count(m.Text, ": invert_look_ahead\n"))
	assert.Contains(t, m.Text, "  pfa_31 : partial_full_adder")
	assert.Contains(t, m.Text, "      a_i      => input(31),")
	assert.Contains(t, m.Text, "  l1_ila_15 : invert_look_ahead")
	assert.Contains(t, m.Text, "      prop_in_3  => pfa_to_l1_prop_out(63),")
	assert.Contains(t, m.Text, "      prop_group => l1_to_l2_prop_out(15)")
}

func TestRenderIsDeterministic(t *testing.T) {
	for _, style := range []Style{StyleGenerate, StyleUnrolled} {
		opts := DefaultOptions()
		opts.Style = style
		a, err := RenderCore(mustTree(t, 100), opts)
		require.NoError(t, err)
		b, err := RenderCore(mustTree(t, 100), opts)
		require.NoError(t, err)
		assert.Equal(t, a.Text, b.Text)
		assert.Equal(t, a.Digest(), b.Digest())
	}
}

func TestRenderCoreRejectsUnknownStyle(t *testing.T) {
	opts := DefaultOptions()
	opts.Style = "verilog"
	_, err := RenderCore(mustTree(t, 32), opts)
	require.Error(t, err)
}

func TestRenderWrapper(t *testing.T) {
	opts := DefaultOptions()
	opts.Header = Header{Authors: "A. Person", Copyright: "Example, 2023.", License: "GPL v3"}

	for _, n := range []int{17, 32, 1000} {
		m, err := RenderWrapper(n, opts)
		require.NoError(t, err)

		assert.Equal(t, WrapperKind, m.Kind)
		assert.Equal(t, opts.WrapperEntity(n), m.Entity)
		assert.Equal(t, opts.WrapperFile(n), m.FileName)
		assert.Contains(t, m.Text, "    G_n : integer := "+strconv.Itoa(n)+"  -- Input magnitude length is n")
		assert.Contains(t, m.Text, "    output     : out   std_logic_vector(G_n downto 0);")
		assert.Contains(t, m.Text, "([G_n] + 1 bits!)")
		assert.Contains(t, m.Text, "  abs_2c_hw : "+opts.CoreEntity(n))
		assert.Contains(t, m.Text, "  component "+opts.CoreEntity(n)+" is")
		assert.Contains(t, m.Text, "  output(output'left) <= input_sign;")
		assert.Contains(t, m.Text, "-- Authors:     A. Person")
		assert.Equal(t, 3, strings.Count(m.Text, "    port map ("))
	}
}

func TestWrapperFileNames(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, "abs_2c_wrapper_v3_64.vhd", opts.WrapperFile(64))
	assert.Equal(t, "abs_2c_wrapper_64", opts.WrapperEntity(64))

	opts.WrapperTag = ""
	assert.Equal(t, "abs_2c_wrapper_64.vhd", opts.WrapperFile(64))
}

func TestCheckNames(t *testing.T) {
	tests := []struct {
		name    string
		edit    func(o *Options)
		collide bool
	}{
		{"defaults", func(o *Options) {}, false},
		{"same_name_no_tag", func(o *Options) { o.CoreName, o.WrapperName, o.WrapperTag = "abs", "abs", "" }, true},
		{"same_name_with_tag", func(o *Options) { o.CoreName, o.WrapperName = "abs", "abs" }, true},
		{"case_only", func(o *Options) { o.CoreName, o.WrapperName = "Abs", "aBS" }, true},
		{"tag_joins_file_names", func(o *Options) { o.CoreName, o.WrapperName, o.WrapperTag = "abs_v3", "abs", "v3" }, true},
		{"distinct", func(o *Options) { o.CoreName, o.WrapperName, o.WrapperTag = "abs", "abs_top", "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.edit(&opts)
			err := opts.CheckNames(32)
			if tt.collide {
				assert.ErrorIs(t, err, ErrNameCollision)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
