package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-binmeta/internal/config"
	"github.com/deploymenttheory/go-binmeta/internal/logger"
	"github.com/deploymenttheory/go-binmeta/internal/metadata"
)

var (
	cfgFile string
	cfg     *config.Config
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.Errorf("Error executing command: %v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "binmeta",
		Short: "Read version and metadata from application bundles",
		Long: `binmeta extracts the version string and descriptive metadata of an
application from its bundle descriptor (Contents/Info.plist of a macOS .app)
or from the version resource of a Windows executable.`,
		PersistentPreRunE: setupLogging,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./binmeta.yaml)")
	rootCmd.PersistentFlags().StringP("platform", "P", "darwin", "descriptor layout: darwin or windows")

	// Logging flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose debugging output")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().String("log-file", "", "log to file instead of stderr")

	rootCmd.AddCommand(
		newVersionCmd(),
		newMetadataCmd(),
		newCallCmd(),
		newServeCmd(),
		newScanCmd(),
	)
	return rootCmd
}

// setupLogging loads the configuration and configures the logger from it
func setupLogging(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("error parsing configuration: %w", err)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	// Check for verbose flag
	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		level = logger.LevelDebug
	}
	logger.SetLevel(level)
	logger.Debugf("Debug logging enabled")

	if cfg.NoColor {
		logger.DisableColors()
	} else {
		logger.EnableColors()
	}

	if cfg.LogFile != "" {
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			logger.Errorf("Failed to open log file: %v", err)
		} else {
			// Disable colors when logging to file
			logger.DisableColors()
			logger.Initialize(file, file, file, file)
			logger.Infof("Logging to file: %s", cfg.LogFile)
		}
	}

	logger.Debugf("Using platform %s", cfg.Platform)
	return nil
}

// newReader builds a metadata reader for the configured platform on the host filesystem
func newReader() (*metadata.Reader, error) {
	platform, err := metadata.PlatformFor(cfg.Platform)
	if err != nil {
		return nil, err
	}
	return metadata.NewReader(nil, platform), nil
}
