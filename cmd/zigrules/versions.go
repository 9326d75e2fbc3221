package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tmaxmax/zigrules/pkg/dist"
)

func newVersionsCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "versions",
		Short: "List toolchain versions published on ziglang.org",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			index := &dist.Index{Timeout: 30 * time.Second}

			releases, err := index.Releases(ctx)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, release := range releases {
				fmt.Fprintf(w, "%s\t%d archives\n", release.Version, len(release.Archives))
				if !verbose {
					continue
				}
				for _, archive := range release.Archives {
					fmt.Fprintf(w, "\t%s\t%s\n", archive.Filename, archive.Shasum)
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "list each release's archives and checksums")

	return cmd
}
