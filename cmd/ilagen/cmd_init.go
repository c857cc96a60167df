package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/config"
)

func runInitCommand(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		switch initFormat {
		case "yaml", "yml":
			path = "ilagen.yaml"
		case "json":
			path = "ilagen.json"
		default:
			return fmt.Errorf("unknown config format %q (want yaml or json)", initFormat)
		}
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
	}

	cfg := config.DefaultConfig()
	cfg.Width = 32
	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("creating config: %w", err)
	}

	fmt.Printf("Created %s\n", path)
	fmt.Println("\nEdit this file to configure:")
	fmt.Println("  - Operand width(s) and render style")
	fmt.Println("  - Entity names and the file banner")
	fmt.Println("  - Pre-write checks, manifest, timing and metrics output")
	return nil
}
