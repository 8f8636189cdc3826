package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"shipscan/scanner-api/internal/banner"
	"shipscan/scanner-api/internal/client"
	"shipscan/scanner-api/internal/model"
	"shipscan/scanner-api/internal/report"
)

type options struct {
	server   string
	interval time.Duration
	timeout  time.Duration
	retries  int
	asJSON   bool
	noBanner bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "[-] Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "shipscan",
		Short:         "Run a Nuclei scan through shipscan and read the summary",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if !opts.noBanner && !opts.asJSON {
				banner.Print(cmd.ErrOrStderr())
			}
		},
	}

	defaultServer := os.Getenv("SHIPSCAN_SERVER")
	if defaultServer == "" {
		defaultServer = "http://127.0.0.1:9001"
	}

	root.PersistentFlags().StringVarP(&opts.server, "server", "s", defaultServer, "shipscan API base URL")
	root.PersistentFlags().IntVar(&opts.retries, "retries", 2, "Retries for failed GET requests")
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "Print the job as JSON")
	root.PersistentFlags().BoolVar(&opts.noBanner, "no-banner", false, "Do not print the banner")

	root.AddCommand(newScanCmd(opts), newStatusCmd(opts))
	return root
}

func newScanCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <url>",
		Short: "Start a scan and wait for its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			c := newClient(opts)
			id, err := c.StartScan(ctx, args[0])
			if err != nil {
				return err
			}
			if !opts.asJSON {
				fmt.Fprintf(cmd.ErrOrStderr(), "[*] Scan %s started\n", id)
			}

			last := model.Status("")
			job, err := c.Poll(ctx, id, opts.interval, func(j model.ScanJob) {
				if j.Status != last && !opts.asJSON {
					fmt.Fprintf(cmd.ErrOrStderr(), "[*] %s\n", report.Status(j.Status))
				}
				last = j.Status
			})
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), job, opts.asJSON)
		},
	}
	cmd.Flags().DurationVar(&opts.interval, "interval", 2*time.Second, "Polling interval")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Minute, "Give up waiting after this long")
	return cmd
}

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id>",
		Short: "Show the current state of a scan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := newClient(opts).GetScan(cmd.Context(), args[0])
			if errors.Is(err, client.ErrNotFound) {
				return fmt.Errorf("scan %s does not exist", args[0])
			}
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), job, opts.asJSON)
		},
	}
}

func newClient(opts *options) *client.Client {
	return client.New(client.Config{
		BaseURL: opts.server,
		Retries: opts.retries,
	})
}

func output(w io.Writer, job model.ScanJob, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(job); err != nil {
			return err
		}
	} else {
		report.Print(w, job)
	}
	if job.Status == model.StatusError {
		return fmt.Errorf("scan %s failed", job.ID)
	}
	return nil
}
