package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for shakeproof.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shakeproof",
		Short: "Benchmark LangShake structured data against the rendered pages",
		Long: `shakeproof measures what a LangShake manifest buys a machine reader.

For each domain it fetches /.well-known/llm.json and every declared module,
verifies checksums and the Merkle root, then extracts JSON-LD from the same
pages the traditional way. Both phases are timed and metered, and the
schemas are compared page by page.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewBenchCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
