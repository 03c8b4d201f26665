package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gyeh/npi-lookup/internal/cloud"
	"github.com/gyeh/npi-lookup/internal/config"
	"github.com/gyeh/npi-lookup/internal/logging"
	"github.com/gyeh/npi-lookup/internal/npi"
	"github.com/gyeh/npi-lookup/internal/output"
	"github.com/gyeh/npi-lookup/internal/progress"
	"github.com/gyeh/npi-lookup/internal/server"
	"github.com/gyeh/npi-lookup/internal/worker"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "npi-lookup",
		Short: "Verify batches of NPI numbers against the NPPES NPI Registry",
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newLookupCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	var (
		address string
		port    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the NPI lookup web form",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if address != "" {
				cfg.Address = address
			}
			if port != "" {
				cfg.Port = port
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			logger := logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat)
			client := npi.NewClient(cfg.RegistryURL, cfg.RegistryTimeout)
			srv := server.NewServer(cfg, client, logger)

			errCh := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err, ok := <-errCh:
				if ok {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-quit:
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "Listen address (overrides ADDRESS)")
	cmd.Flags().StringVar(&port, "port", "", "Listen port (overrides PORT)")

	return cmd
}

func newLookupCmd() *cobra.Command {
	var (
		npiList     string
		inputFile   string
		outputFile  string
		format      string
		registryURL string
		timeout     time.Duration
		pause       time.Duration
		noProgress  bool
		s3Bucket    string
		s3Key       string
		region      string
	)

	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Look up a batch of NPIs and print or save the results table",
		RunE: func(cmd *cobra.Command, args []string) error {
			if npiList == "" && inputFile == "" {
				return fmt.Errorf("one of --npi or --file is required")
			}
			if format != "table" && format != "csv" {
				return fmt.Errorf("unknown --format %q (want table or csv)", format)
			}

			text := npiList
			if inputFile != "" {
				data, err := readInput(inputFile)
				if err != nil {
					return fmt.Errorf("reading NPIs: %w", err)
				}
				text += "\n" + string(data)
			}

			npis, err := npi.ParseNPIsStrict(text)
			if err != nil {
				return err
			}

			logger := logging.Setup(os.Stderr, "warn", "text")

			// Handle signals
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				fmt.Fprintln(os.Stderr, "\nInterrupted, finishing batch...")
				cancel()
			}()

			fmt.Fprintf(os.Stderr, "Processing %d unique NPIs...\n", len(npis))

			var tracker progress.Tracker
			if noProgress {
				tracker = &progress.NoopTracker{}
			} else {
				tracker = progress.NewMPBTracker(os.Stderr, len(npis), "Looking up")
			}

			runner := &worker.Runner{
				Client:   npi.NewClient(registryURL, timeout),
				Pause:    pause,
				Progress: tracker,
				Logger:   logger,
			}

			startTime := time.Now()
			rows := runner.Run(ctx, npis)
			duration := time.Since(startTime)

			if err := output.WriteResults(outputFile, format, rows); err != nil {
				return fmt.Errorf("writing output: %w", err)
			}

			if s3Bucket != "" {
				data, err := output.EncodeCSV(rows)
				if err != nil {
					return fmt.Errorf("encoding CSV: %w", err)
				}
				s3c, err := cloud.NewS3Client(ctx, s3Bucket, region)
				if err != nil {
					return err
				}
				if err := s3c.UploadCSV(ctx, s3Key, data); err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "Uploaded CSV to s3://%s/%s\n", s3Bucket, s3Key)
			}

			fmt.Fprintf(os.Stderr, "\nLookup complete: %s in %.1fs\n", summarize(rows), duration.Seconds())
			if outputFile != "-" {
				fmt.Fprintf(os.Stderr, "Results written to %s\n", outputFile)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&npiList, "npi", "", "NPI numbers separated by commas or whitespace")
	cmd.Flags().StringVar(&inputFile, "file", "", "File with pasted NPI numbers ('-' for stdin)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "-", "Output file path ('-' for stdout, '.gz' suffix compresses)")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or csv")
	cmd.Flags().StringVar(&registryURL, "registry-url", npi.DefaultRegistryURL, "NPI Registry API endpoint")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Per-request registry timeout (0 for none)")
	cmd.Flags().DurationVar(&pause, "pause", worker.DefaultPause, "Pause between registry lookups")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")
	cmd.Flags().StringVar(&s3Bucket, "s3-bucket", "", "Also upload the CSV export to this S3 bucket")
	cmd.Flags().StringVar(&s3Key, "s3-key", output.CSVFileName, "S3 object key for the CSV export")
	cmd.Flags().StringVar(&region, "region", "us-east-1", "AWS region")

	return cmd
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func summarize(rows []worker.Row) string {
	counts := make(map[worker.Status]int)
	for _, r := range rows {
		counts[r.Status]++
	}
	return fmt.Sprintf("%d NPIs, %d active, %d invalid, %d failed",
		len(rows), counts[worker.StatusActive], counts[worker.StatusInvalid], counts[worker.StatusError])
}
