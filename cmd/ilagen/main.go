// =============================================================================
// ilagen - ILA-tree VHDL generator
// =============================================================================
//
// Generates a sign-and-magnitude to two's-complement converter for an n-bit
// operand: a core built as a radix-4 tree of invert look-ahead nodes over a
// row of partial full adders, and a registered wrapper around it.
//
// THE PIPELINE (per width):
//   1. Plan levels: L = ceil(log4 n), S[i] = 4^(L-i)
//   2. Build the tree: tiers, buses and resolved port bindings
//   3. Render core and wrapper VHDL
//   4. Check: CUE manifest schema, OPA wiring rules, regex readback
//   5. Write both files (and the manifest) atomically, or not at all
// =============================================================================

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
