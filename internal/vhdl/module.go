// Package vhdl renders a tree.Tree as two structural VHDL design units: the
// arithmetic core and the registered wrapper around it.
package vhdl

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrNameCollision reports core and wrapper naming that would produce the
// same entity or the same file.
var ErrNameCollision = errors.New("core and wrapper names collide")

// Style selects how replicated tiers are written out.
type Style string

const (
	// StyleGenerate writes each replicated tier as a for-generate loop.
	StyleGenerate Style = "generate"
	// StyleUnrolled writes one labelled instance per tree node.
	StyleUnrolled Style = "unrolled"
)

// Kind tells the two emitted modules apart.
type Kind string

const (
	CoreKind    Kind = "core"
	WrapperKind Kind = "wrapper"
)

// Header carries the attribution lines of the file banner. Empty fields are
// left out of the banner.
type Header struct {
	Authors   string `json:"authors,omitempty" yaml:"authors,omitempty"`
	Copyright string `json:"copyright,omitempty" yaml:"copyright,omitempty"`
	License   string `json:"license,omitempty" yaml:"license,omitempty"`
}

// Options controls naming and layout of the emitted modules.
type Options struct {
	CoreName    string
	WrapperName string
	WrapperTag  string
	Style       Style
	Header      Header
}

// DefaultOptions matches the historical abs_2c file naming.
func DefaultOptions() Options {
	return Options{
		CoreName:    "abs_2c_look_ahead",
		WrapperName: "abs_2c_wrapper",
		WrapperTag:  "v3",
		Style:       StyleGenerate,
		Header:      Header{License: "GPL v3"},
	}
}

// CoreEntity is the core entity name for width n.
func (o Options) CoreEntity(n int) string {
	return fmt.Sprintf("%s_%d", o.CoreName, n)
}

// WrapperEntity is the wrapper entity name for width n.
func (o Options) WrapperEntity(n int) string {
	return fmt.Sprintf("%s_%d", o.WrapperName, n)
}

// CoreFile is the file name of the core artifact.
func (o Options) CoreFile(n int) string {
	return o.CoreEntity(n) + ".vhd"
}

// WrapperFile is the file name of the wrapper artifact.
func (o Options) WrapperFile(n int) string {
	if o.WrapperTag == "" {
		return o.WrapperEntity(n) + ".vhd"
	}
	return fmt.Sprintf("%s_%s_%d.vhd", o.WrapperName, o.WrapperTag, n)
}

// CheckNames fails when the core and wrapper would share an entity name or
// a file name for width n. VHDL identifiers and many file systems ignore
// case, so the comparison does too.
func (o Options) CheckNames(n int) error {
	if strings.EqualFold(o.CoreEntity(n), o.WrapperEntity(n)) {
		return fmt.Errorf("%w: entity %s", ErrNameCollision, o.CoreEntity(n))
	}
	if strings.EqualFold(o.CoreFile(n), o.WrapperFile(n)) {
		return fmt.Errorf("%w: file %s", ErrNameCollision, o.CoreFile(n))
	}
	return nil
}

// Module is one finished design unit. It is never modified after rendering.
type Module struct {
	Kind     Kind   `json:"kind"`
	Entity   string `json:"entity"`
	FileName string `json:"file_name"`
	Text     string `json:"-"`
}

// Bytes returns the module text.
func (m Module) Bytes() []byte {
	return []byte(m.Text)
}

// Digest is the hex SHA-256 of the module text.
func (m Module) Digest() string {
	h := sha256.Sum256([]byte(m.Text))
	return hex.EncodeToString(h[:])
}
