package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-binmeta/internal/logger"
	"github.com/deploymenttheory/go-binmeta/internal/processor"
	"github.com/deploymenttheory/go-binmeta/internal/scanner"
	"github.com/deploymenttheory/go-binmeta/internal/storage"
)

func newScanCmd() *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan <root>",
		Short: "Index the metadata of every bundle below a directory",
		Long: `scan walks a directory tree, reads the descriptor of every application
bundle (or executable, on the windows platform) it finds, computes its SHA3
hash, and stores the results in a JSON index.`,
		Args: cobra.ExactArgs(1),
		RunE: runScan,
	}

	scanCmd.Flags().StringP("output", "o", "bundles.json", "output JSON file")
	scanCmd.Flags().IntP("depth", "d", 4, "maximum directory depth, 0 for unlimited")
	scanCmd.Flags().StringSliceP("include", "i", []string{}, "regex patterns a bundle path must match")
	scanCmd.Flags().StringSliceP("exclude", "x", []string{}, "regex patterns of paths to skip")
	scanCmd.Flags().IntP("workers", "w", 4, "number of processor workers")

	return scanCmd
}

func runScan(cmd *cobra.Command, args []string) error {
	overallStartTime := time.Now()

	reader, err := newReader()
	if err != nil {
		return err
	}

	logger.Infof("Scanning %s for %s bundles with depth %d", args[0], cfg.Platform, cfg.Scan.MaxDepth)

	// Setup signal handling for graceful shutdown
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signalChan)

	store, err := storage.New(cfg.Scan.OutputFile)
	if err != nil {
		return err
	}
	logger.Infof("Scan run %s", store.RunID())

	proc := processor.New(cfg.Scan.Workers, reader, reader.Platform().Name, store)
	scan := scanner.New(nil, scanner.Options{
		Root:            args[0],
		Platform:        reader.Platform().Name,
		MaxDepth:        cfg.Scan.MaxDepth,
		IncludePatterns: cfg.Scan.IncludePatterns,
		ExcludePatterns: cfg.Scan.ExcludePatterns,
	}, proc.Queue())

	proc.Start()

	// Run scanner (blocking until complete or interrupted)
	scanErr := make(chan error, 1)
	go func() {
		scanErr <- scan.Run()
		// Signal we're done discovering bundles
		proc.Done()
	}()

	// Wait for completion or interrupt
	select {
	case <-scan.Done():
		logger.Infof("Scan complete, waiting for processing to finish...")
	case sig := <-signalChan:
		logger.Infof("Received signal %v, shutting down gracefully...", sig)
		scan.Stop()
		proc.Stop()
	}
	proc.Wait()

	if err := store.Close(); err != nil {
		return err
	}
	if err := <-scanErr; err != nil {
		return err
	}

	scanStats := scan.Stats()
	procStats := proc.Stats()
	storeStats := store.Stats()

	logger.Infof("Scan completed in %v", time.Since(overallStartTime))
	logger.Infof("Component timing:")
	logger.Infof("  - Scanner:   %v", scan.Duration())
	logger.Infof("  - Processor: %v", proc.Duration())

	logger.Infof("Directories visited: %d", scanStats.DirsVisited)
	logger.Infof("Paths skipped: %d", scanStats.PathsSkipped)
	logger.Infof("Bundles found: %d", scanStats.BundlesFound)
	logger.Infof("Bundles processed: %d (skipped %d, errors %d)", procStats.BundlesProcessed, procStats.BundlesSkipped, procStats.Errors)
	logger.Infof("Descriptor data indexed: %s", humanize.Bytes(uint64(storeStats.DescriptorBytes)))
	logger.Infof("Results saved to: %s", cfg.Scan.OutputFile)
	return nil
}
