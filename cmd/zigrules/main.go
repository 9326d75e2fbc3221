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

type rootOptions struct {
	configFile   string
	manifestFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "zigrules",
		Short:         "Declare and provision Zig build rules for a build orchestrator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "path to the flag defaults config file")
	root.PersistentFlags().StringVar(&opts.manifestFile, "manifest", "zigbuild.yaml", "path to the build manifest")

	root.AddCommand(
		newDeclareCmd(opts),
		newFetchCmd(opts),
		newVersionsCmd(),
	)

	return root
}
