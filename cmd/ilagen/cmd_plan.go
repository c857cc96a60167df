package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/tree"
)

type planReport struct {
	tree.Levels
	Padding   int            `json:"padding"`
	Instances map[string]int `json:"instances"`
}

func runPlanCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ws := cfg.WidthList()
	if len(ws) == 0 {
		return errNoWidth
	}

	var reports []planReport
	for i, n := range ws {
		lv, err := tree.PlanLevels(n)
		if err != nil {
			return err
		}
		if planJSON {
			reports = append(reports, planReport{
				Levels:  lv,
				Padding: lv.Padding(),
				Instances: map[string]int{
					tree.LeafComponent: n - 1,
					tree.NodeComponent: nodeCount(lv),
				},
			})
			continue
		}

		if len(ws) > 1 {
			if i > 0 {
				fmt.Println()
			}
			fmt.Printf("Width: %d\n", n)
		}
		fmt.Printf("Levels: %d\n", lv.Count)
		for level, size := range lv.Sizes {
			fmt.Printf("l%d_size = %d\n", level, size)
		}
	}

	if planJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}
	return nil
}

// nodeCount is the number of invert look-ahead nodes: every interior tier
// plus the top.
func nodeCount(lv tree.Levels) int {
	total := 1
	for level := 1; level < lv.Count; level++ {
		total += lv.Size(level)
	}
	return total
}
