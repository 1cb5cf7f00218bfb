package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-binmeta/internal/bridge"
	"github.com/deploymenttheory/go-binmeta/internal/logger"
)

var errNoVersion = errors.New("no version found")

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version <path>",
		Short: "Print the version of a bundle or executable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader, err := newReader()
			if err != nil {
				return err
			}

			version, ok := reader.ReadVersion(args[0])
			if !ok {
				return fmt.Errorf("%s: %w", args[0], errNoVersion)
			}
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}

func newMetadataCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metadata <path>",
		Short: "Print all metadata fields of a bundle or executable as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader, err := newReader()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), reader.ReadMetadata(args[0]))
		},
	}
}

func newCallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "call <method> <path>",
		Short: "Dispatch one bridge method call and print its JSON result",
		Example: `  binmeta call getBinaryFileVersion /Applications/Safari.app
  binmeta call getBinaryFileMetadata /Applications/Safari.app/Contents/MacOS/Safari`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader, err := newReader()
			if err != nil {
				return err
			}

			result, err := bridge.NewDispatcher(reader).Handle(bridge.MethodCall{
				Method:    args[0],
				Arguments: map[string]interface{}{"filePath": args[1]},
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Answer newline-delimited JSON method calls on stdin",
		Long: `serve reads one JSON request per line from stdin, for example

  {"id":1,"method":"getBinaryFileVersion","arguments":{"filePath":"/Applications/Safari.app"}}

and writes one JSON response per line to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reader, err := newReader()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.Infof("Serving %s metadata requests on stdio", reader.Platform().Name)
			return serve(ctx, bridge.NewDispatcher(reader), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// serve runs the bridge until input ends or ctx is cancelled. A read blocked
// on stdin does not observe cancellation, so the signal path returns without
// waiting for it.
func serve(ctx context.Context, d *bridge.Dispatcher, r io.Reader, w io.Writer) error {
	errc := make(chan error, 1)
	go func() { errc <- d.Serve(ctx, r, w) }()

	select {
	case err := <-errc:
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Infof("Received shutdown signal, stopping bridge")
		return nil
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

