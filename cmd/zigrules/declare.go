package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/tmaxmax/zigrules/pkg/config"
)

func newDeclareCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "declare",
		Short: "Compose the manifest's rules and print them as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults, err := config.LoadDefaults(opts.configFile)
			if err != nil {
				return err
			}

			manifest, err := config.LoadManifest(opts.manifestFile)
			if err != nil {
				return err
			}

			rs, err := manifest.Rules(defaults)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rs)
		},
	}
}
