package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fwpack/fwpack/internal/core/object"
	"github.com/fwpack/fwpack/internal/service/packager"
)

var (
	// objectMode selects the installation mode for add.
	objectMode string
	// objectOptions are the key=value mode options for add.
	objectOptions []string

	// newCmd starts a fresh package bound to a product.
	newCmd = &cobra.Command{
		Use:   "new [product-uid]",
		Short: "Start a new package for a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return packager.NewPackage(ctx, packagerOptions(), args[0])
		},
	}

	// addCmd appends an update object to the package.
	addCmd = &cobra.Command{
		Use:   "add [filename]",
		Short: "Add an update object to the package",
		Long: fmt.Sprintf(`Adds a payload file to the package under an installation mode.

Supported modes: %v.

Mode options and install conditions are passed as repeated -o key=value
flags, for example:

  fwpack add vmlinuz -m raw -o target=/dev/sda \
    -o install-condition=version-diverges \
    -o install-condition-pattern-type=linux-kernel`, object.ModeNames()),
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return packager.AddObject(ctx, packagerOptions(), args[0], objectMode, objectOptions)
		},
	}

	// removeCmd drops an update object from the package.
	removeCmd = &cobra.Command{
		Use:   "remove [filename]",
		Short: "Remove an update object from the package",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return packager.RemoveObject(ctx, packagerOptions(), args[0])
		},
	}

	// showCmd prints the package listing.
	showCmd = &cobra.Command{
		Use:   "show",
		Short: "Show the package contents",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			listing, err := packager.Show(ctx, packagerOptions())
			if err != nil {
				return err
			}

			command.Println(listing)

			return nil
		},
	}
)

// packagerOptions builds the shared service options from the
// persistent flags.
func packagerOptions() *packager.Options {
	return &packager.Options{PackagePath: packagePath}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	addCmd.Flags().StringVarP(&objectMode, "mode", "m", "", "installation mode (required)")
	addCmd.Flags().StringArrayVarP(&objectOptions, "option", "o", nil, "object option as key=value (repeatable)")
	_ = addCmd.MarkFlagRequired("mode")

	rootCmd.AddCommand(newCmd, addCmd, removeCmd, showCmd)
}
