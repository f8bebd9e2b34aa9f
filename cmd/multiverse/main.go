package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "multiverse",
		Short: "Procedural multiverse simulation engine",
		Long:  "Deterministic multiverse generation with torus enrichment cycles and a reputation-aware NPC dialogue subsystem.",
	}
	root.AddCommand(newDemoCmd())
	root.AddCommand(newReplayCmd())
	root.AddCommand(newQueryCmd())
	return root
}
