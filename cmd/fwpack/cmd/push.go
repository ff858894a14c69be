package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fwpack/fwpack/internal/service/pusher"
)

var (
	// configPath to the settings YAML file.
	configPath string
	// packageVersion the package is published as.
	packageVersion string

	// pushCmd publishes the package to the update server.
	pushCmd = &cobra.Command{
		Use:   "push",
		Short: "Publish the package to the update server",
		Long: `Registers the package metadata with the update server and uploads
every object payload in chunks. Server address and credentials come
from the settings file or FWPACK_* environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &pusher.Options{
				ConfigPath:  configPath,
				PackagePath: packagePath,
				Version:     packageVersion,
			}

			return pusher.Run(ctx, options)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	pushCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to settings file")
	pushCmd.Flags().StringVarP(&packageVersion, "release-version", "r", "", "version to publish the package as")

	rootCmd.AddCommand(pushCmd)
}
