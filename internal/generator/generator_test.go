package generator

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/metrics"
	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/sink"
	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/tree"
	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/validator"
	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/vhdl"
)

func newChecker(t *testing.T) *Checker {
	t.Helper()
	c, err := NewChecker(context.Background(), AllChecks(), "")
	require.NoError(t, err)
	return c
}

func options(n int, style vhdl.Style) Options {
	render := vhdl.DefaultOptions()
	render.Style = style
	return Options{Width: n, Render: render}
}

func TestGenerateWidth32(t *testing.T) {
	opts := options(32, vhdl.StyleGenerate)
	opts.Checker = newChecker(t)

	art, err := Generate(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 32, art.Width())
	assert.Equal(t, 3, art.Manifest.Levels)
	assert.Equal(t, []int{64, 16, 4}, art.Manifest.Sizes)
	assert.Equal(t, "abs_2c_look_ahead_32.vhd", art.Core.FileName)
	assert.Equal(t, "abs_2c_wrapper_v3_32.vhd", art.Wrapper.FileName)
	assert.Equal(t, "abs_2c_look_ahead_32", art.Core.Entity)
	assert.Equal(t, "abs_2c_wrapper_32", art.Wrapper.Entity)

	var counts []int
	for _, tier := range art.Manifest.Tiers {
		counts = append(counts, tier.Count)
	}
	assert.Equal(t, []int{31, 16, 4, 1}, counts)

	require.NotNil(t, art.Facts)
	require.Len(t, art.Findings, 2, "leaf boundary buses carry padding at n=32")
	for _, f := range art.Findings {
		assert.Equal(t, "padding_entries", f.Rule)
		assert.Equal(t, "info", f.Severity)
	}
	require.Len(t, art.Manifest.Artifacts, 2)
	assert.Equal(t, art.Core.Digest(), art.Manifest.Artifacts[0].SHA256)
}

func TestGenerateWidth64HasNoPadding(t *testing.T) {
	for _, style := range []vhdl.Style{vhdl.StyleGenerate, vhdl.StyleUnrolled} {
		t.Run(string(style), func(t *testing.T) {
			opts := options(64, style)
			opts.Checker = newChecker(t)

			art, err := Generate(context.Background(), opts)
			require.NoError(t, err)
			assert.Equal(t, []int{64, 16, 4}, art.Manifest.Sizes)
			assert.Empty(t, art.Findings)
			for _, b := range art.Manifest.Buses {
				assert.Zero(t, b.Padding, b.Name)
			}
		})
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	for _, style := range []vhdl.Style{vhdl.StyleGenerate, vhdl.StyleUnrolled} {
		a, err := Generate(context.Background(), options(100, style))
		require.NoError(t, err)
		b, err := Generate(context.Background(), options(100, style))
		require.NoError(t, err)
		assert.Equal(t, a.Core.Text, b.Core.Text)
		assert.Equal(t, a.Wrapper.Text, b.Wrapper.Text)
		assert.Equal(t, a.Manifest, b.Manifest)
	}
}

func TestGenerateDefaultsToGenerateStyle(t *testing.T) {
	opts := options(32, "")
	art, err := Generate(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, string(vhdl.StyleGenerate), art.Manifest.Style)
	assert.Contains(t, art.Core.Text, "generate")
}

func TestGenerateRejectsSmallWidth(t *testing.T) {
	dir := t.TempDir()
	d, err := sink.NewDir(dir)
	require.NoError(t, err)

	for _, n := range []int{0, 4, 16} {
		opts := options(n, vhdl.StyleGenerate)
		opts.Sink = d
		_, err := Generate(context.Background(), opts)
		require.Error(t, err)
		assert.True(t, errors.Is(err, tree.ErrWidthTooSmall), "n=%d: %v", n, err)
	}

	_, err = Generate(context.Background(), options(tree.MaxWidth+1, vhdl.StyleGenerate))
	assert.ErrorIs(t, err, tree.ErrWidthTooLarge)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGenerateWritesToDir(t *testing.T) {
	dir := t.TempDir()
	d, err := sink.NewDir(dir)
	require.NoError(t, err)

	opts := options(32, vhdl.StyleGenerate)
	opts.Checker = newChecker(t)
	opts.Sink = d
	opts.WriteManifest = true

	art, err := Generate(context.Background(), opts)
	require.NoError(t, err)

	for _, name := range []string{art.Core.FileName, art.Wrapper.FileName} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.NotEmpty(t, data)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "abs_2c_look_ahead_32.manifest.json"))
	require.NoError(t, err)
	mv, err := validator.NewManifestValidator()
	require.NoError(t, err)
	require.NoError(t, mv.ValidateJSON(raw))

	var m Manifest
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, art.Manifest, m)
}

func TestGenerateWrapperOutputWidth(t *testing.T) {
	for _, n := range []int{17, 32, 1000} {
		art, err := Generate(context.Background(), options(n, vhdl.StyleGenerate))
		require.NoError(t, err)
		files, err := Readback(art.Wrapper)
		require.NoError(t, err)
		entity, ok := files[0].Entity(art.Wrapper.Entity)
		require.True(t, ok)
		found := false
		for _, p := range entity.Ports {
			if p.Name == tree.OutputSignal {
				found = true
				values := entity.GenericValues()
				assert.Equal(t, n, values["G_n"])
				assert.Contains(t, p.Type, "G_n downto 0")
			}
		}
		assert.True(t, found)
	}
}

type failingSink struct{ calls int }

func (f *failingSink) Write(context.Context, ...sink.File) error {
	f.calls++
	return errors.New("disk full")
}

func (f *failingSink) Close() error { return nil }

func TestGenerateSinkFailure(t *testing.T) {
	fs := &failingSink{}
	opts := options(32, vhdl.StyleGenerate)
	opts.Sink = fs

	_, err := Generate(context.Background(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, fs.calls)
}

func TestGenerateRuleFailureWritesNothing(t *testing.T) {
	policyDir := t.TempDir()
	rule := `package ilagen.rules

violations contains v if {
	some t in input.tiers
	t.kind == "top"
	v := violation("single_top", "error", t.label, "top tier rejected for test")
}
`
	require.NoError(t, os.WriteFile(filepath.Join(policyDir, "extra.rego"), []byte(rule), 0o644))

	checker, err := NewChecker(context.Background(), AllChecks(), policyDir)
	require.NoError(t, err)

	fs := &failingSink{}
	m := metrics.New()
	opts := options(32, vhdl.StyleGenerate)
	opts.Checker = checker
	opts.Sink = fs
	opts.Metrics = m

	_, err = Generate(context.Background(), opts)
	require.ErrorIs(t, err, ErrChecksFailed)
	assert.Contains(t, err.Error(), "single_top")
	assert.Zero(t, fs.calls)

	path := filepath.Join(t.TempDir(), "ilagen.prom")
	require.NoError(t, m.WriteTextfile(path))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `ilagen_rule_violations_total{rule="single_top",severity="error"} 1`)
	assert.Contains(t, string(raw), `ilagen_generations_total{result="error",style="generate"} 1`)
}

func TestCheckReadbackFindsMissingBus(t *testing.T) {
	art, err := Generate(context.Background(), options(32, vhdl.StyleGenerate))
	require.NoError(t, err)

	core := art.Core
	core.Text = strings.Replace(core.Text, "signal l1_to_pfa_carry_in", "-- signal l1_to_pfa_carry_in", 1)
	files, err := Readback(core, art.Wrapper)
	require.NoError(t, err)

	errs := checkReadback(art.Tree, vhdl.StyleGenerate, core, art.Wrapper, files[0], files[1])
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "l1_to_pfa_carry_in is not declared")
}

func TestCheckReadbackFindsShortGenerate(t *testing.T) {
	art, err := Generate(context.Background(), options(32, vhdl.StyleGenerate))
	require.NoError(t, err)

	core := art.Core
	core.Text = strings.Replace(core.Text, "gen_pfa : for i in 1 to", "gen_pfa : for i in 2 to", 1)
	files, err := Readback(core, art.Wrapper)
	require.NoError(t, err)

	errs := checkReadback(art.Tree, vhdl.StyleGenerate, core, art.Wrapper, files[0], files[1])
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "tier pfa")
}

func TestCheckReadbackUnrolledCountsInstances(t *testing.T) {
	art, err := Generate(context.Background(), options(32, vhdl.StyleUnrolled))
	require.NoError(t, err)

	files, err := Readback(art.Core, art.Wrapper)
	require.NoError(t, err)
	assert.Empty(t, checkReadback(art.Tree, vhdl.StyleUnrolled, art.Core, art.Wrapper, files[0], files[1]))

	// the same text does not satisfy the generate-style expectations
	assert.NotEmpty(t, checkReadback(art.Tree, vhdl.StyleGenerate, art.Core, art.Wrapper, files[0], files[1]))
}

func TestFactsTables(t *testing.T) {
	art, err := Generate(context.Background(), options(32, vhdl.StyleGenerate))
	require.NoError(t, err)

	tables, err := Facts(art.Tree, art.Core, art.Wrapper)
	require.NoError(t, err)
	assert.Len(t, tables.Files, 2)
	assert.Len(t, tables.Instances, 31+16+4+1)
	assert.Len(t, tables.Entities, 2)
}

func TestTimingRecordsStages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timing.jsonl")
	timing := NewTiming(timeNow(), path)
	require.True(t, timing.Enabled())

	opts := options(32, vhdl.StyleGenerate)
	opts.Checker = newChecker(t)
	opts.Timing = timing
	_, err := Generate(context.Background(), opts)
	require.NoError(t, err)
	require.NoError(t, timing.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	seen := make(map[string]bool)
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		var ev TimingEvent
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
		assert.Equal(t, 32, ev.Width)
		assert.GreaterOrEqual(t, ev.EndMS, ev.StartMS)
		seen[ev.Phase] = true
	}
	for _, stage := range []string{StagePlan, StageTree, StageRender, StageSchema, StageReadback, StageRules, StageTotal} {
		assert.True(t, seen[stage], "missing stage %s", stage)
	}
	assert.False(t, seen[StageWrite], "no sink, no write stage")
}

func TestTimingAppendsAcrossRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timing.jsonl")
	for _, n := range []int{32, 64} {
		timing := NewTiming(timeNow(), path)
		require.NoError(t, timing.Err())
		timing.RecordStage(StagePlan, n, timeNow(), 0, "")
		require.NoError(t, timing.Close())
	}

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var widths []int
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		var ev TimingEvent
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
		widths = append(widths, ev.Width)
	}
	assert.Equal(t, []int{32, 64}, widths)
}

func TestGenerateRejectsCollidingNames(t *testing.T) {
	dir := t.TempDir()
	d, err := sink.NewDir(dir)
	require.NoError(t, err)

	for _, edit := range []func(o *vhdl.Options){
		func(o *vhdl.Options) { o.CoreName, o.WrapperName, o.WrapperTag = "abs", "abs", "" },
		func(o *vhdl.Options) { o.CoreName, o.WrapperName = "abs", "ABS" },
		func(o *vhdl.Options) { o.CoreName, o.WrapperName, o.WrapperTag = "abs_v3", "abs", "v3" },
	} {
		opts := options(32, vhdl.StyleGenerate)
		edit(&opts.Render)
		opts.Checker = newChecker(t)
		opts.Sink = d
		art, err := Generate(context.Background(), opts)
		assert.ErrorIs(t, err, vhdl.ErrNameCollision)
		assert.Nil(t, art)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTimingDisabled(t *testing.T) {
	var nilTiming *Timing
	assert.False(t, nilTiming.Enabled())
	nilTiming.RecordStage(StagePlan, 32, timeNow(), 0, "")
	assert.NoError(t, nilTiming.Close())

	tr := NewTiming(timeNow(), "")
	assert.False(t, tr.Enabled())
	assert.Empty(t, tr.Events())
}
