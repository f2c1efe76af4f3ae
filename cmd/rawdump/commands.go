package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/richardpark-msft/rawdump/cmd/internal"
	"github.com/richardpark-msft/rawdump/internal/config"
	"github.com/richardpark-msft/rawdump/internal/format"
	"github.com/richardpark-msft/rawdump/internal/logging"
	"github.com/richardpark-msft/rawdump/internal/rawfile"
	"github.com/richardpark-msft/rawdump/internal/server"
	"github.com/richardpark-msft/rawdump/internal/shared"
	"github.com/richardpark-msft/rawdump/internal/sink"
	"github.com/richardpark-msft/rawdump/internal/utils"
	"github.com/spf13/cobra"
)

const labeledFlagUsage = "Each line is prefixed with a label, ex: 'out:<base64>'"

func newDecodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode FILE",
		Short: "Decodes each line of a capture and writes the payloads in the chosen format.",
		Args:  cobra.ExactArgs(1),
	}

	formatName := cmd.Flags().String("format", format.Hex, "Output format, one of: "+strings.Join(format.Supported(), ", "))
	outFile := cmd.Flags().String("out", "", "File to write to, instead of stdout")
	skipInvalid := cmd.Flags().Bool("skip-invalid", false, "Skip lines that aren't valid base64, instead of stopping")
	limit := cmd.Flags().Int("limit", 0, "Maximum number of records to write. 0 writes all of them")
	labeled := cmd.Flags().Bool("labeled", false, labeledFlagUsage)

	cmd.RunE = func(cmd *cobra.Command, args []string) (err error) {
		formatter, err := format.Get(*formatName)

		if err != nil {
			return err
		}

		records, err := sink.OpenRecords(args[0], *labeled, &rawfile.ReaderOptions{ContinueOnError: *skipInvalid})

		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()

		if *outFile != "" {
			file, createErr := os.Create(*outFile)

			if createErr != nil {
				return createErr
			}

			defer func() {
				err = errors.Join(err, file.Close())
			}()

			w = file
		}

		ws := sink.NewWriterSink(w, formatter)

		stats, err := sink.Pump(cmd.Context(), records, ws, &sink.PumpOptions{
			SkipInvalid: *skipInvalid,
			Limit:       *limit,
		})

		if err := errors.Join(err, ws.Close()); err != nil {
			return err
		}

		logging.SloggerFromContext(cmd.Context()).Debug("Decoded capture", "file", args[0], "records", stats.Records, "invalid", stats.Invalid)
		return nil
	}

	return cmd
}

func newStatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats FILE",
		Short: "Counts the records, payload bytes and invalid lines in a capture.",
		Args:  cobra.ExactArgs(1),
	}

	labeled := cmd.Flags().Bool("labeled", false, labeledFlagUsage)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		records, err := sink.OpenRecords(args[0], *labeled, &rawfile.ReaderOptions{ContinueOnError: true})

		if err != nil {
			return err
		}

		stats, err := sink.Pump(cmd.Context(), records, sink.Discard, &sink.PumpOptions{SkipInvalid: true})

		if err != nil {
			return err
		}

		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(stats)
	}

	return cmd
}

func newEncodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode --out FILE INPUT...",
		Short: "Creates a capture, where each input file (or - for stdin) becomes a single record.",
		Args:  cobra.MinimumNArgs(1),
	}

	outFile := cmd.Flags().String("out", "", "The capture to create. Files ending in .gz are compressed")
	label := cmd.Flags().String("label", "", "Writes a labeled capture, using this label for every record")
	_ = cmd.MarkFlagRequired("out")

	cmd.RunE = func(cmd *cobra.Command, args []string) (err error) {
		writer, err := rawfile.Create(*outFile)

		if err != nil {
			return err
		}

		defer func() {
			err = errors.Join(err, writer.Close())
		}()

		for _, input := range args {
			var payload []byte

			if input == "-" {
				payload, err = io.ReadAll(cmd.InOrStdin())
			} else {
				payload, err = os.ReadFile(input)
			}

			if err != nil {
				return err
			}

			if *label != "" {
				err = writer.WriteLabeled(*label, payload)
			} else {
				err = writer.WriteRecord(payload)
			}

			if err != nil {
				return err
			}
		}

		logging.SloggerFromContext(cmd.Context()).Info("Capture written", "file", *outFile, "records", writer.Count())
		return nil
	}

	return cmd
}

func newReplayCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay FILE",
		Short: "Sends each payload in a capture to a collector over TCP.",
		Args:  cobra.ExactArgs(1),
	}

	cmd.Flags().String("target", "", "The collector's address, host:port (default $"+config.EnvReplayTarget+")")
	useTLS := cmd.Flags().Bool("tls", false, "Connect to the collector using TLS")
	insecure := cmd.Flags().Bool("insecure", false, "Don't verify the collector's certificate")
	framingName := cmd.Flags().String("framing", string(sink.FramingNone), "How payloads are delimited: none, or length (4 byte big endian prefix)")
	interval := cmd.Flags().Duration("interval", 0, "Delay between each payload")
	dialTimeout := cmd.Flags().Duration("dial-timeout", 30*time.Second, "Timeout when connecting to the collector")
	skipInvalid := cmd.Flags().Bool("skip-invalid", false, "Skip lines that aren't valid base64, instead of stopping")
	limit := cmd.Flags().Int("limit", 0, "Maximum number of records to send. 0 sends all of them")
	labeled := cmd.Flags().Bool("labeled", false, labeledFlagUsage)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		target, err := internal.StringFlagOrEnv(cmd.Flags(), "target", config.EnvReplayTarget)

		if err != nil {
			return err
		}

		if target == "" {
			return fmt.Errorf("--target (or %s) must be set", config.EnvReplayTarget)
		}

		framing, err := sink.ParseFraming(*framingName)

		if err != nil {
			return err
		}

		ctx, slogger := logging.ContextWithSloggerAndValues(cmd.Context(), "target", target)

		connSink, err := sink.DialConnSink(ctx, target, &sink.ConnSinkOptions{
			TLS:                *useTLS,
			InsecureSkipVerify: *insecure,
			Framing:            framing,
			DialTimeout:        *dialTimeout,
		})

		if err != nil {
			return err
		}

		defer utils.CloseWithLogging("replay connection", connSink)

		records, err := sink.OpenRecords(args[0], *labeled, &rawfile.ReaderOptions{ContinueOnError: *skipInvalid})

		if err != nil {
			return err
		}

		slogger.Info("Replaying capture", "file", args[0])

		stats, err := sink.Pump(ctx, records, connSink, &sink.PumpOptions{
			SkipInvalid: *skipInvalid,
			Limit:       *limit,
			Interval:    *interval,
		})

		slogger.Info("Replay finished", "records", stats.Records, "bytes", stats.Bytes, "invalid", stats.Invalid)
		return err
	}

	return cmd
}

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serves a directory of captures over HTTP.",
		Args:  cobra.NoArgs,
	}

	cmd.Flags().String("dir", ".", "Directory containing the captures (default $"+config.EnvCapturesDir+", or the current directory)")
	cmd.Flags().String("listen", "localhost:8080", "Address to listen on (default $"+config.EnvListen+", or localhost:8080)")
	useTLS := cmd.Flags().Bool("tls", false, "Serve using TLS, with a self-signed certificate")
	certDir := cmd.Flags().String("cert-dir", "", "Directory for the server.crt and server.key used with --tls. Defaults to <dir>/.certs")
	addressFile := cmd.Flags().String("address-file", "", "File to write the listening address to, once the server has started")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		dir, err := internal.StringFlagOrEnv(cmd.Flags(), "dir", config.EnvCapturesDir)

		if err != nil {
			return err
		}

		listen, err := internal.StringFlagOrEnv(cmd.Flags(), "listen", config.EnvListen)

		if err != nil {
			return err
		}

		ctx, slogger := logging.ContextWithSloggerAndValues(cmd.Context(), "dir", dir)

		var serverCert *shared.ServerCert

		if *useTLS {
			if *certDir == "" {
				*certDir = filepath.Join(dir, ".certs")
			}

			sc, err := shared.LoadOrCreateServerCert(*certDir)

			if err != nil {
				return err
			}

			serverCert = &sc
		}

		srv := server.New(dir, &server.Options{
			Slogger:     slogger,
			AddressFile: *addressFile,
		})

		if serverCert != nil {
			return srv.ListenAndServe(ctx, listen, serverCert.TLSConfig())
		}

		return srv.ListenAndServe(ctx, listen, nil)
	}

	return cmd
}
