// Package extractor reads VHDL text back into flat facts. It only understands
// the structural subset the generator emits: entities with generics and ports,
// component declarations, vector signals, concurrent assignments, for-generate
// loops and component instances with named associations.
package extractor

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"
)

// Extractor turns VHDL source into FileFacts.
type Extractor struct{}

// FileFacts contains all extracted information from a single VHDL file
type FileFacts struct {
	File          string
	Entities      []Entity
	Architectures []Architecture
	Components    []Component
	Dependencies  []Dependency
	Signals       []Signal
	Assignments   []Assignment
	Generates     []Generate
	Instances     []Instance
}

// Entity represents a VHDL entity declaration
type Entity struct {
	Name     string
	Line     int
	Generics []Generic
	Ports    []Port
}

// Generic is an integer generic with its default value.
type Generic struct {
	Name    string
	Type    string
	Default string
	Line    int
}

// Architecture represents a VHDL architecture body
type Architecture struct {
	Name       string
	EntityName string
	Line       int
}

// Component represents a component declaration
type Component struct {
	Name  string
	Line  int
	Ports []Port
}

// Dependency represents a use or library clause
type Dependency struct {
	Target string
	Kind   string // "use", "library"
	Line   int
}

// Signal represents a signal declaration
type Signal struct {
	Name     string
	Type     string
	Line     int
	InEntity string // architecture's entity
}

// Port represents an entity or component port
type Port struct {
	Name      string
	Direction string // in, out, inout, buffer
	Type      string
	Line      int
}

// Assignment is a concurrent signal assignment.
type Assignment struct {
	Target string
	Source string
	Line   int
}

// Generate is a for-generate loop header.
type Generate struct {
	Label string
	Var   string
	Range string
	Line  int
}

// Instance is a component instantiation.
type Instance struct {
	Label     string
	Component string
	Generate  string // enclosing generate label, empty at architecture level
	Line      int
	Generics  []Association
	Ports     []Association
}

// Association is one formal => actual pair of a map.
type Association struct {
	Formal string
	Actual string
}

// New creates a new Extractor
func New() *Extractor {
	return &Extractor{}
}

// Extract reads and extracts a VHDL file
func (e *Extractor) Extract(filePath string) (FileFacts, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return FileFacts{File: filePath}, fmt.Errorf("reading file: %w", err)
	}
	return e.ExtractText(filePath, content)
}

type section int

const (
	sectionNone section = iota
	sectionGenerics
	sectionPorts
)

// scanner holds the per-file state of one extraction pass.
type scanner struct {
	facts     *FileFacts
	entity    *Entity
	component *Component
	clause    section
	arch      string
	begun     bool
	generates []string
	pending   *Instance // "label : component" seen, map not yet open
	inst      *Instance
	mapKind   section
}

// ExtractText extracts facts from in-memory VHDL. name is recorded as the
// file name.
func (e *Extractor) ExtractText(name string, content []byte) (FileFacts, error) {
	facts := FileFacts{File: name}
	s := &scanner{facts: &facts}

	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		s.line(stripComment(sc.Text()), lineNum)
	}
	if err := sc.Err(); err != nil {
		return facts, fmt.Errorf("scanning %s: %w", name, err)
	}
	if s.entity != nil {
		return facts, fmt.Errorf("%s: entity %s is not closed", name, s.entity.Name)
	}
	if len(s.generates) > 0 {
		return facts, fmt.Errorf("%s: generate %s is not closed", name, s.generates[len(s.generates)-1])
	}
	if s.inst != nil || s.pending != nil {
		return facts, fmt.Errorf("%s: unterminated instance", name)
	}
	return facts, nil
}

func stripComment(line string) string {
	if i := strings.Index(line, "--"); i >= 0 {
		line = line[:i]
	}
	return strings.TrimRight(line, " \t")
}

func (s *scanner) line(line string, n int) {
	trimmed := strings.ToLower(strings.TrimSpace(line))
	if trimmed == "" {
		return
	}

	if s.inst != nil {
		s.association(line, trimmed)
		return
	}
	if s.pending != nil {
		if mapPattern.MatchString(line) {
			s.openMap(s.pending, trimmed)
			s.pending = nil
			return
		}
		s.pending = nil
	}

	switch {
	case s.component != nil:
		s.componentLine(line, trimmed, n)
	case s.entity != nil:
		s.entityLine(line, trimmed, n)
	case s.arch != "" && s.begun:
		s.bodyLine(line, trimmed, n)
	default:
		s.declarationLine(line, trimmed, n)
	}
}

func (s *scanner) declarationLine(line, trimmed string, n int) {
	if m := matchLibrary(line); m != nil {
		s.facts.Dependencies = append(s.facts.Dependencies, Dependency{Target: m[0], Kind: "library", Line: n})
		return
	}
	if m := matchUseClause(line); m != nil {
		s.facts.Dependencies = append(s.facts.Dependencies, Dependency{Target: m[0], Kind: "use", Line: n})
		return
	}
	if m := matchEntity(line); m != nil {
		s.entity = &Entity{Name: m[0], Line: n}
		s.clause = sectionNone
		return
	}
	if m := matchArchitecture(line); m != nil {
		s.facts.Architectures = append(s.facts.Architectures, Architecture{Name: m[0], EntityName: m[1], Line: n})
		s.arch = m[1]
		s.begun = false
		return
	}
	if s.arch == "" {
		return
	}
	if m := matchComponent(line); m != nil {
		s.component = &Component{Name: m[0], Line: n}
		s.clause = sectionNone
		return
	}
	if m := matchSignal(line); m != nil {
		s.facts.Signals = append(s.facts.Signals, Signal{Name: m[0], Type: m[1], Line: n, InEntity: s.arch})
		return
	}
	if trimmed == "begin" {
		s.begun = true
	}
}

func (s *scanner) entityLine(line, trimmed string, n int) {
	switch {
	case strings.HasPrefix(trimmed, "generic"):
		s.clause = sectionGenerics
		return
	case strings.HasPrefix(trimmed, "port"):
		s.clause = sectionPorts
		return
	case strings.HasPrefix(trimmed, "end"):
		s.facts.Entities = append(s.facts.Entities, *s.entity)
		s.entity = nil
		return
	}

	switch s.clause {
	case sectionGenerics:
		if m := matchGeneric(line); m != nil {
			s.entity.Generics = append(s.entity.Generics, Generic{Name: m[0], Type: m[1], Default: m[2], Line: n})
		}
	case sectionPorts:
		if m := matchPort(line); m != nil {
			s.entity.Ports = append(s.entity.Ports, Port{Name: m[0], Direction: m[1], Type: m[2], Line: n})
		}
	}
}

func (s *scanner) componentLine(line, trimmed string, n int) {
	if strings.HasPrefix(trimmed, "end component") {
		s.facts.Components = append(s.facts.Components, *s.component)
		s.component = nil
		return
	}
	if strings.HasPrefix(trimmed, "port") {
		s.clause = sectionPorts
		return
	}
	if strings.HasPrefix(trimmed, "generic") {
		s.clause = sectionGenerics
		return
	}
	if s.clause != sectionPorts {
		return
	}
	if m := matchPort(line); m != nil {
		s.component.Ports = append(s.component.Ports, Port{Name: m[0], Direction: m[1], Type: m[2], Line: n})
	}
}

func (s *scanner) bodyLine(line, trimmed string, n int) {
	if strings.HasPrefix(trimmed, "end architecture") || trimmed == "end "+strings.ToLower(s.arch)+";" {
		s.arch = ""
		s.begun = false
		return
	}
	if endGeneratePattern.MatchString(line) {
		if len(s.generates) > 0 {
			s.generates = s.generates[:len(s.generates)-1]
		}
		return
	}
	if m := matchGenerate(line); m != nil {
		s.facts.Generates = append(s.facts.Generates, Generate{Label: m[0], Var: m[1], Range: m[2], Line: n})
		s.generates = append(s.generates, m[0])
		return
	}
	if m := matchComponentInstantiation(line); m != nil {
		s.openMap(s.newInstance(m, n), trimmed)
		return
	}
	if m := matchInstanceHead(line); m != nil {
		s.pending = s.newInstance(m, n)
		return
	}
	if m := matchAssignment(line); m != nil {
		s.facts.Assignments = append(s.facts.Assignments, Assignment{Target: m[0], Source: m[1], Line: n})
	}
}

func (s *scanner) newInstance(m []string, n int) *Instance {
	inst := &Instance{Label: m[0], Component: m[1], Line: n}
	if len(s.generates) > 0 {
		inst.Generate = s.generates[len(s.generates)-1]
	}
	return inst
}

// openMap starts collecting associations. The map keyword is on trimmed.
func (s *scanner) openMap(inst *Instance, trimmed string) {
	s.inst = inst
	s.mapKind = sectionPorts
	if strings.Contains(trimmed, "generic map") {
		s.mapKind = sectionGenerics
	}
}

func (s *scanner) association(line, trimmed string) {
	if mapPattern.MatchString(line) {
		s.openMap(s.inst, trimmed)
		return
	}
	if m := matchAssociation(line); m != nil {
		a := Association{Formal: m[0], Actual: m[1]}
		if s.mapKind == sectionGenerics {
			s.inst.Generics = append(s.inst.Generics, a)
		} else {
			s.inst.Ports = append(s.inst.Ports, a)
		}
		return
	}
	// a bare ")" closes a generic map; the port map follows
	if trimmed == ");" {
		s.facts.Instances = append(s.facts.Instances, *s.inst)
		s.inst = nil
	}
}

// GenericValues returns the integer defaults of an entity's generics.
func (e Entity) GenericValues() map[string]int {
	values := make(map[string]int, len(e.Generics))
	for _, g := range e.Generics {
		if v, ok := term(g.Default, nil); ok {
			values[g.Name] = v
		}
	}
	return values
}

// Bounds resolves an ascending "lo to hi" generate range against values.
func (g Generate) Bounds(values map[string]int) (lo, hi int, ok bool) {
	i := strings.Index(strings.ToLower(g.Range), " to ")
	if i < 0 {
		return 0, 0, false
	}
	lo, okLo := evalBound(unparen(g.Range[:i]), values)
	hi, okHi := evalBound(unparen(g.Range[i+len(" to "):]), values)
	return lo, hi, okLo && okHi
}

func unparen(s string) string {
	s = strings.TrimSpace(s)
	for strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// Entity looks up an entity by name.
func (f FileFacts) Entity(name string) (Entity, bool) {
	for _, e := range f.Entities {
		if strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return Entity{}, false
}

// InstancesOf returns the instances of a component.
func (f FileFacts) InstancesOf(component string) []Instance {
	var out []Instance
	for _, inst := range f.Instances {
		if strings.EqualFold(inst.Component, component) {
			out = append(out, inst)
		}
	}
	return out
}
