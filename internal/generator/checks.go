package generator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/extractor"
	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/facts"
	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/policy"
	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/tree"
	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/validator"
	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/vhdl"
)

// Checks selects the verification passes run before anything is written.
type Checks struct {
	Schema   bool
	Rules    bool
	Readback bool
}

// AllChecks enables every pass.
func AllChecks() Checks {
	return Checks{Schema: true, Rules: true, Readback: true}
}

func (c Checks) any() bool {
	return c.Schema || c.Rules || c.Readback
}

// Checker holds the compiled schemas and rule engine. It is safe for
// concurrent use and meant to be shared across a batch.
type Checker struct {
	checks Checks

	// CUE values are not safe for concurrent evaluation.
	cueMu    sync.Mutex
	manifest *validator.ManifestValidator
	facts    *validator.FactsValidator

	engine *policy.Engine
}

// NewChecker compiles what the enabled checks need. policyDir adds rule
// files on top of the built-in ones when set.
func NewChecker(ctx context.Context, checks Checks, policyDir string) (*Checker, error) {
	c := &Checker{checks: checks}
	var err error
	if checks.Schema {
		if c.manifest, err = validator.NewManifestValidator(); err != nil {
			return nil, fmt.Errorf("manifest schema: %w", err)
		}
	}
	if checks.Rules {
		if c.facts, err = validator.NewFactsValidator(); err != nil {
			return nil, fmt.Errorf("facts schema: %w", err)
		}
		if policyDir != "" {
			c.engine, err = policy.NewWithDir(ctx, policyDir)
		} else {
			c.engine, err = policy.New(ctx)
		}
		if err != nil {
			return nil, fmt.Errorf("rule engine: %w", err)
		}
	}
	return c, nil
}

// Checks reports which passes this checker runs.
func (c *Checker) Checks() Checks {
	if c == nil {
		return Checks{}
	}
	return c.checks
}

func (c *Checker) validateManifest(m Manifest) error {
	c.cueMu.Lock()
	defer c.cueMu.Unlock()
	if err := c.manifest.Validate(m); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}

func (c *Checker) validateFacts(tables facts.Tables) error {
	c.cueMu.Lock()
	defer c.cueMu.Unlock()
	if err := c.facts.Validate(tables); err != nil {
		return fmt.Errorf("facts schema: %w", err)
	}
	return nil
}

// Readback parses the rendered modules back into file facts.
func Readback(modules ...vhdl.Module) ([]extractor.FileFacts, error) {
	ext := extractor.New()
	out := make([]extractor.FileFacts, 0, len(modules))
	for _, m := range modules {
		ff, err := ext.ExtractText(m.FileName, m.Bytes())
		if err != nil {
			return nil, fmt.Errorf("readback %s: %w", m.FileName, err)
		}
		out = append(out, ff)
	}
	return out, nil
}

// Facts builds the fact tables of a rendered pair.
func Facts(t *tree.Tree, modules ...vhdl.Module) (facts.Tables, error) {
	files, err := Readback(modules...)
	if err != nil {
		return facts.Tables{}, err
	}
	return facts.BuildTables(t, files), nil
}

// checkReadback compares what the extractor sees in the text with the tree it
// was rendered from.
func checkReadback(t *tree.Tree, style vhdl.Style, core, wrapper vhdl.Module, coreFacts, wrapperFacts extractor.FileFacts) []error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("readback: "+format, args...))
	}

	entity, ok := coreFacts.Entity(core.Entity)
	if !ok {
		fail("%s does not declare entity %s", core.FileName, core.Entity)
	}
	if _, ok := wrapperFacts.Entity(wrapper.Entity); !ok {
		fail("%s does not declare entity %s", wrapper.FileName, wrapper.Entity)
	}

	declared := make(map[string]string, len(coreFacts.Signals))
	for _, s := range coreFacts.Signals {
		declared[strings.ToLower(s.Name)] = s.Type
	}
	values := entity.GenericValues()
	for _, b := range t.Buses {
		typ, ok := declared[strings.ToLower(b.Name)]
		if !ok {
			fail("bus %s is not declared", b.Name)
			continue
		}
		if w := extractor.ResolveWidth(typ, values); w != b.Width {
			fail("bus %s is declared with width %d, want %d", b.Name, w, b.Width)
		}
	}

	for _, tier := range t.Tiers {
		if !tierPresent(tier, style, coreFacts, values) {
			fail("tier %s (%s) is not instantiated as planned", tier.Label, tier.Component)
		}
	}

	if got := len(wrapperFacts.InstancesOf(core.Entity)); got != 1 {
		fail("%s instantiates %s %d times", wrapper.FileName, core.Entity, got)
	}
	if we, ok := wrapperFacts.Entity(wrapper.Entity); ok {
		wantOut := t.Levels.Width + 1
		for _, p := range we.Ports {
			if strings.EqualFold(p.Name, tree.OutputSignal) {
				if w := extractor.ResolveWidth(p.Type, we.GenericValues()); w != wantOut {
					fail("wrapper output has width %d, want %d", w, wantOut)
				}
			}
		}
	}
	return errs
}

// tierPresent finds a tier either as a generate loop over its exact range or
// as its individually labelled instances.
func tierPresent(tier tree.Tier, style vhdl.Style, ff extractor.FileFacts, values map[string]int) bool {
	if style == vhdl.StyleGenerate && tier.Kind != tree.TopTier {
		for _, g := range ff.Generates {
			if !strings.EqualFold(g.Label, "gen_"+tier.Label) {
				continue
			}
			lo, hi, ok := g.Bounds(values)
			return ok && lo == tier.First && hi == tier.Last()
		}
		return false
	}

	count := 0
	for _, inst := range ff.InstancesOf(tier.Component) {
		if inst.Label == tier.Label || strings.HasPrefix(inst.Label, tier.Label+"_") {
			count++
		}
	}
	return count == tier.Count
}
