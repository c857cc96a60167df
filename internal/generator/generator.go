// Package generator assembles one operand width end to end: level plan, tree,
// rendered modules, verification passes and delivery to a sink.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/facts"
	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/logging"
	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/metrics"
	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/policy"
	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/sink"
	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/tree"
	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/vhdl"
)

// ErrChecksFailed wraps every verification failure.
var ErrChecksFailed = errors.New("generation checks failed")

// Options configures a run. Only Width is required; the zero value of every
// other field disables the matching feature.
type Options struct {
	Width  int
	Render vhdl.Options

	// Checker runs the verification passes. A nil Checker skips them.
	Checker *Checker

	// Sink receives the files once every check has passed. Nil keeps the
	// artifacts in memory only.
	Sink          sink.Sink
	WriteManifest bool

	Logger  *slog.Logger
	Metrics *metrics.Recorder
	Timing  *Timing
}

// Artifacts is the immutable result of one run.
type Artifacts struct {
	Tree     *tree.Tree
	Core     vhdl.Module
	Wrapper  vhdl.Module
	Manifest Manifest

	// Facts and Findings are filled when the rule pass ran.
	Facts    *facts.Tables
	Findings []policy.Violation
}

// Width is the operand width the artifacts were built for.
func (a *Artifacts) Width() int {
	return a.Tree.Levels.Width
}

// Files lists what a sink receives: core, wrapper and optionally the manifest.
func (a *Artifacts) Files(withManifest bool) ([]sink.File, error) {
	files := []sink.File{
		{Name: a.Core.FileName, Data: a.Core.Bytes()},
		{Name: a.Wrapper.FileName, Data: a.Wrapper.Bytes()},
	}
	if withManifest {
		data, err := sink.MarshalJSON(a.Manifest)
		if err != nil {
			return nil, err
		}
		files = append(files, sink.File{Name: ManifestFile(a.Core.Entity), Data: data})
	}
	return files, nil
}

// Generate runs the whole pipeline for opts.Width. Nothing reaches the sink
// unless every enabled check passes.
func Generate(ctx context.Context, opts Options) (_ *Artifacts, err error) {
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	log = log.With("width", opts.Width)
	n := opts.Width
	if opts.Render.Style == "" {
		opts.Render.Style = vhdl.StyleGenerate
	}
	style := opts.Render.Style
	runStart := time.Now()
	defer func() {
		opts.Metrics.RecordRun(string(style), err)
		status := "ok"
		if err != nil {
			status = "error"
		}
		opts.Timing.RecordStage(StageTotal, n, runStart, time.Since(runStart), status)
	}()

	stage := func(name string, start time.Time, status string) {
		d := time.Since(start)
		opts.Timing.RecordStage(name, n, start, d, status)
		opts.Metrics.ObserveStage(name, d)
		log.Debug("stage done", "stage", name, "duration", d, "status", status)
	}

	stepStart := time.Now()
	lv, err := tree.PlanLevels(n)
	if err != nil {
		stage(StagePlan, stepStart, "error")
		return nil, fmt.Errorf("planning levels: %w", err)
	}
	stage(StagePlan, stepStart, "")

	stepStart = time.Now()
	t, err := tree.Build(lv)
	if err != nil {
		stage(StageTree, stepStart, "error")
		return nil, fmt.Errorf("building tree: %w", err)
	}
	stage(StageTree, stepStart, "")

	stepStart = time.Now()
	if err := opts.Render.CheckNames(n); err != nil {
		stage(StageRender, stepStart, "error")
		return nil, err
	}
	core, err := vhdl.RenderCore(t, opts.Render)
	if err != nil {
		stage(StageRender, stepStart, "error")
		return nil, fmt.Errorf("rendering core: %w", err)
	}
	wrapper, err := vhdl.RenderWrapper(n, opts.Render)
	if err != nil {
		stage(StageRender, stepStart, "error")
		return nil, fmt.Errorf("rendering wrapper: %w", err)
	}
	stage(StageRender, stepStart, "")

	art := &Artifacts{
		Tree:     t,
		Core:     core,
		Wrapper:  wrapper,
		Manifest: NewManifest(t, style, core, wrapper),
	}
	opts.Metrics.SetDesign(n, lv.Count, instanceCounts(t))
	log.Debug("rendered", "levels", lv.Count, "sizes", lv.Sizes, "instances", t.InstanceCount())

	checkErr := runChecks(ctx, opts.Checker, art, style, stage)
	recordFindings(opts.Metrics, art.Findings)
	if checkErr != nil {
		return nil, checkErr
	}

	if opts.Sink == nil {
		return art, nil
	}

	stepStart = time.Now()
	files, err := art.Files(opts.WriteManifest)
	if err != nil {
		stage(StageWrite, stepStart, "error")
		return nil, err
	}
	if err := opts.Sink.Write(ctx, files...); err != nil {
		stage(StageWrite, stepStart, "error")
		return nil, fmt.Errorf("writing width %d: %w", n, err)
	}
	stage(StageWrite, stepStart, "")
	opts.Metrics.SetArtifactBytes(core.FileName, string(core.Kind), len(core.Text))
	opts.Metrics.SetArtifactBytes(wrapper.FileName, string(wrapper.Kind), len(wrapper.Text))
	log.Info("generated", "core", core.FileName, "wrapper", wrapper.FileName)

	return art, nil
}

func runChecks(ctx context.Context, c *Checker, art *Artifacts, style vhdl.Style, stage func(string, time.Time, string)) error {
	checks := c.Checks()
	if !checks.any() {
		return nil
	}
	var pipelineErrs []error

	if checks.Schema {
		stepStart := time.Now()
		status := ""
		if err := c.validateManifest(art.Manifest); err != nil {
			pipelineErrs = append(pipelineErrs, err)
			status = "error"
		}
		stage(StageSchema, stepStart, status)
	}

	if checks.Readback || checks.Rules {
		stepStart := time.Now()
		files, err := Readback(art.Core, art.Wrapper)
		if err != nil {
			stage(StageReadback, stepStart, "error")
			return fmt.Errorf("%w:\n- %v", ErrChecksFailed, err)
		}
		if checks.Readback {
			status := ""
			if errs := checkReadback(art.Tree, style, art.Core, art.Wrapper, files[0], files[1]); len(errs) > 0 {
				pipelineErrs = append(pipelineErrs, errs...)
				status = "error"
			}
			stage(StageReadback, stepStart, status)
		}

		if checks.Rules {
			stepStart = time.Now()
			status := ""
			tables := facts.BuildTables(art.Tree, files)
			errs, err := c.evaluateRules(ctx, art, tables)
			if err != nil {
				stage(StageRules, stepStart, "error")
				return err
			}
			if len(errs) > 0 {
				pipelineErrs = append(pipelineErrs, errs...)
				status = "error"
			}
			stage(StageRules, stepStart, status)
		}
	}

	if len(pipelineErrs) > 0 {
		return fmt.Errorf("%w:\n%s", ErrChecksFailed, formatPipelineErrors(pipelineErrs))
	}
	return nil
}

// evaluateRules returns one error per error-severity finding. The returned
// error is reserved for the engine itself failing.
func (c *Checker) evaluateRules(ctx context.Context, art *Artifacts, tables facts.Tables) ([]error, error) {
	var errs []error
	if err := c.validateFacts(tables); err != nil {
		errs = append(errs, err)
	}
	result, err := c.engine.Evaluate(ctx, tables)
	if err != nil {
		return nil, fmt.Errorf("evaluating rules: %w", err)
	}
	art.Facts = &tables
	art.Findings = result.Violations
	for _, v := range result.Violations {
		if v.Severity == "error" {
			errs = append(errs, fmt.Errorf("rule %s", v))
		}
	}
	return errs, nil
}

// recordFindings counts every rule finding of a run.
func recordFindings(m *metrics.Recorder, findings []policy.Violation) {
	for _, v := range findings {
		m.AddViolation(v.Rule, v.Severity)
	}
}

func formatPipelineErrors(errs []error) string {
	var b strings.Builder
	for i, err := range errs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func instanceCounts(t *tree.Tree) map[string]int {
	counts := make(map[string]int)
	for _, tier := range t.Tiers {
		counts[tier.Component] += tier.Count
	}
	return counts
}

// GenerateBatch runs Generate for every width, at most runtime.NumCPU at a
// time. The first failure cancels the widths still pending. Results follow
// the order of widths.
func GenerateBatch(ctx context.Context, widths []int, opts Options) ([]*Artifacts, error) {
	results := make([]*Artifacts, len(widths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, n := range widths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			o := opts
			o.Width = n
			art, err := Generate(gctx, o)
			if err != nil {
				return fmt.Errorf("width %d: %w", n, err)
			}
			results[i] = art
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
