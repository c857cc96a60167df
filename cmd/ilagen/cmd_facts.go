package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/config"
	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/facts"
	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/generator"
	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/sink"
)

func runFactsCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ws := cfg.WidthList()
	if len(ws) != 1 {
		return fmt.Errorf("facts needs exactly one width, got %d", len(ws))
	}

	tables, err := tablesFor(cmd.Context(), cfg, ws[0])
	if err != nil {
		return err
	}

	var levels map[int]bool
	if len(factsTiers) > 0 {
		levels = make(map[int]bool, len(factsTiers))
		for _, l := range factsTiers {
			levels[l] = true
		}
		tables = facts.FilterTablesByTier(tables, levels)
	}

	var out any = tables
	if cmd.Flags().Changed("delta-from") {
		prev, err := tablesFor(cmd.Context(), cfg, deltaFrom)
		if err != nil {
			return fmt.Errorf("delta-from: %w", err)
		}
		delta := facts.ComputeDelta(prev, tables)
		if levels != nil {
			delta = facts.FilterDeltaByTier(delta, levels)
		}
		out = delta
	}

	if factsOut != "" {
		return sink.WriteJSONAtomic(factsOut, out)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// tablesFor renders width n in memory and reads the fact tables back.
func tablesFor(ctx context.Context, cfg *config.Config, n int) (facts.Tables, error) {
	if err := config.CheckWidth(n); err != nil {
		return facts.Tables{}, err
	}
	art, err := generator.Generate(ctx, generator.Options{Width: n, Render: cfg.ToOptions()})
	if err != nil {
		return facts.Tables{}, err
	}
	return generator.Facts(art.Tree, art.Core, art.Wrapper)
}
