package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for jsrecon.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jsrecon",
		Short: "Find secrets and vulnerable libraries in a site's JavaScript",
		Long: `jsrecon crawls a website breadth-first within its origin, downloads every
external and inline script, and reports:
- Hard-coded credentials (cloud keys, tokens, private keys, keyword-backed literals)
- Client-side libraries with published advisories (via OSV)

Pages that fail to load are reported as analysis errors; the crawl goes on.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewCompareCmd())
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
