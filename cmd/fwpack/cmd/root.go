package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/fwpack/fwpack/internal/config"
	"github.com/fwpack/fwpack/internal/logger"
	"github.com/fwpack/fwpack/internal/version"
)

var (
	// packagePath to the package template file.
	packagePath string
	// logLevel for diagnostic output on stderr.
	logLevel string

	// rootCmd represents the base command for managing update packages.
	rootCmd = &cobra.Command{
		Use:   "fwpack",
		Short: "Build and publish firmware update packages",
		Long: `fwpack assembles firmware update packages and publishes them to an
update server.

A package binds a product to a set of update objects. Each object names
a payload file, the installation mode the device applies it with, and
an install condition deciding whether the device installs it at all.
The package lives in a local template file between invocations; push
uploads it.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if level, ok := logger.ParseLevel(logLevel); ok {
				logger.SetLevel(level)
			}
		},
	}
)

// Execute runs the fwpack CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&packagePath, "package", "p", config.DefaultPackageFilename, "path to package template file")
	rootCmd.PersistentFlags().
		StringVarP(&logLevel, "log-level", "l", "info", "logging level (debug, info, warn, error, fatal)")
}
