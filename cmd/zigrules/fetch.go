package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tmaxmax/zigrules/pkg/config"
	"github.com/tmaxmax/zigrules/pkg/dist"
)

// prefetchHosts are the platforms "fetch --all-platforms" provisions, which
// covers the distribution host's tier-1 archives.
var prefetchHosts = []dist.Host{
	{OS: "linux", Arch: "amd64"},
	{OS: "linux", Arch: "arm64"},
	{OS: "darwin", Arch: "amd64"},
	{OS: "darwin", Arch: "arm64"},
	{OS: "windows", Arch: "amd64"},
}

func newFetchCmd(opts *rootOptions) *cobra.Command {
	var (
		out          string
		allPlatforms bool
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download and extract the manifest's toolchain distribution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := config.LoadManifest(opts.manifestFile)
			if err != nil {
				return err
			}
			spec := manifest.Toolchain.DistSpec()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := os.MkdirAll(out, 0o755); err != nil {
				return err
			}

			client := &dist.Client{Logf: log.Printf}

			if allPlatforms {
				dists := make([]dist.Distribution, 0, len(prefetchHosts))
				for _, host := range prefetchHosts {
					d, err := dist.Resolve(spec, host)
					if err != nil {
						return err
					}
					dists = append(dists, d)
				}

				_, err := client.FetchAll(ctx, dists, spec.Hashes, out)
				return err
			}

			d, err := dist.Resolve(spec, dist.CurrentHost())
			if err != nil {
				return err
			}

			bundle, err := client.Fetch(ctx, d, spec.Hashes, filepath.Join(out, d.DirName))
			if err != nil {
				return err
			}

			log.Printf("toolchain ready: compiler at %s", bundle.Compiler())
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "zig-toolchain", "directory the toolchain is extracted under")
	cmd.Flags().BoolVar(&allPlatforms, "all-platforms", false, "prefetch archives for all supported platforms")

	return cmd
}
