package generator

import (
	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/tree"
	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/vhdl"
)

// Manifest describes one generated pair: the level plan, every boundary bus,
// every tier and a digest of each file.
type Manifest struct {
	Width     int                `json:"width"`
	Levels    int                `json:"levels"`
	Sizes     []int              `json:"sizes"`
	Style     string             `json:"style"`
	Buses     []ManifestBus      `json:"buses"`
	Tiers     []ManifestTier     `json:"tiers"`
	Artifacts []ManifestArtifact `json:"artifacts"`
}

type ManifestBus struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	High    int    `json:"high"`
	Low     int    `json:"low"`
	Width   int    `json:"width"`
	Active  int    `json:"active"`
	Padding int    `json:"padding"`
	Generic string `json:"generic"`
}

type ManifestTier struct {
	Level     int    `json:"level"`
	Label     string `json:"label"`
	Component string `json:"component"`
	First     int    `json:"first"`
	Count     int    `json:"count"`
}

type ManifestArtifact struct {
	Kind     string `json:"kind"`
	Entity   string `json:"entity"`
	FileName string `json:"file_name"`
	SHA256   string `json:"sha256"`
}

// NewManifest summarizes a tree and the modules rendered from it.
func NewManifest(t *tree.Tree, style vhdl.Style, modules ...vhdl.Module) Manifest {
	lv := t.Levels
	m := Manifest{
		Width:     lv.Width,
		Levels:    lv.Count,
		Sizes:     append([]int(nil), lv.Sizes...),
		Style:     string(style),
		Buses:     make([]ManifestBus, 0, len(t.Buses)),
		Tiers:     make([]ManifestTier, 0, len(t.Tiers)),
		Artifacts: make([]ManifestArtifact, 0, len(modules)),
	}
	for _, b := range t.Buses {
		m.Buses = append(m.Buses, ManifestBus{
			Name:    b.Name,
			Kind:    string(b.Kind),
			High:    b.High,
			Low:     b.Low,
			Width:   b.Width,
			Active:  b.Active,
			Padding: b.Padding(),
			Generic: b.Generic,
		})
	}
	for _, tier := range t.Tiers {
		m.Tiers = append(m.Tiers, ManifestTier{
			Level:     tier.Level,
			Label:     tier.Label,
			Component: tier.Component,
			First:     tier.First,
			Count:     tier.Count,
		})
	}
	for _, mod := range modules {
		m.Artifacts = append(m.Artifacts, ManifestArtifact{
			Kind:     string(mod.Kind),
			Entity:   mod.Entity,
			FileName: mod.FileName,
			SHA256:   mod.Digest(),
		})
	}
	return m
}

// ManifestFile is the manifest file name for a core entity.
func ManifestFile(coreEntity string) string {
	return coreEntity + ".manifest.json"
}
