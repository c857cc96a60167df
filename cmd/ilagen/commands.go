package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath string
	logLevel   string
	logFormat  string

	widths      []int
	style       string
	outDir      string
	toStdout    bool
	noChecks    bool
	noManifest  bool
	planJSON    bool
	factsOut    string
	deltaFrom   int
	factsTiers  []int
	initFormat  string
	initForce   bool
	watchDelay  string
	metricsPath string

	rootCmd = &cobra.Command{
		Use:   "ilagen",
		Short: "Generate ILA-tree sign-magnitude to two's-complement converters in VHDL",
		Long: `ilagen writes a structural VHDL core and wrapper for an n-bit operand.
The core is a radix-4 invert look-ahead tree over n-1 partial full adders.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	generateCmd = &cobra.Command{
		Use:     "generate",
		Short:   "Render, check and write the core and wrapper for each width",
		Aliases: []string{"gen"},
		Args:    cobra.NoArgs,
		RunE:    runGenerateCommand, // Defined in cmd_generate.go
	}

	planCmd = &cobra.Command{
		Use:   "plan",
		Short: "Print the level plan (L and every l<i>_size) for each width",
		Args:  cobra.NoArgs,
		RunE:  runPlanCommand, // Defined in cmd_plan.go
	}

	factsCmd = &cobra.Command{
		Use:   "facts",
		Short: "Emit the relational fact tables of a generated core, or a delta between two widths",
		Args:  cobra.NoArgs,
		RunE:  runFactsCommand, // Defined in cmd_facts.go
	}

	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Write a default ilagen configuration file",
		Args:  cobra.NoArgs,
		RunE:  runInitCommand, // Defined in cmd_init.go
	}

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Regenerate whenever the configuration file changes",
		Args:  cobra.NoArgs,
		RunE:  runWatchCommand, // Defined in cmd_watch.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default: search ilagen.json, .ilagen.json, ilagen.yaml, ~/.config/ilagen/)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override log format (text, json)")

	for _, cmd := range []*cobra.Command{generateCmd, watchCmd} {
		cmd.Flags().IntSliceVarP(&widths, "width", "n", nil, "operand width n, repeatable (16 < n <= 65536)")
		cmd.Flags().StringVar(&style, "style", "", "render style: generate or unrolled")
		cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default: output_dir from config)")
		cmd.Flags().BoolVar(&noChecks, "no-checks", false, "skip schema, rule and readback checks")
		cmd.Flags().BoolVar(&noManifest, "no-manifest", false, "do not write the manifest file")
		cmd.Flags().StringVar(&metricsPath, "metrics", "", "write a Prometheus textfile here after the run")
	}
	generateCmd.Flags().BoolVar(&toStdout, "stdout", false, "stream the files to stdout instead of writing them")
	watchCmd.Flags().StringVar(&watchDelay, "debounce", "200ms", "quiet period after a change before regenerating")

	planCmd.Flags().IntSliceVarP(&widths, "width", "n", nil, "operand width n, repeatable")
	planCmd.Flags().BoolVar(&planJSON, "json", false, "print the plan as JSON")

	factsCmd.Flags().IntSliceVarP(&widths, "width", "n", nil, "operand width n")
	factsCmd.Flags().IntVar(&deltaFrom, "delta-from", 0, "emit the delta from the tables of this width")
	factsCmd.Flags().StringVarP(&factsOut, "output", "o", "", "write JSON to file (default: stdout)")
	factsCmd.Flags().IntSliceVar(&factsTiers, "tier", nil, "keep only rows of these tier levels, repeatable")
	factsCmd.Flags().StringVar(&style, "style", "", "render style the readback is taken from")

	initCmd.Flags().StringVar(&initFormat, "format", "yaml", "config format: yaml or json")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing file")

	rootCmd.AddCommand(generateCmd, planCmd, factsCmd, initCmd, watchCmd)
}
