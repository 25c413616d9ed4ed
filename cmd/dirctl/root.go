package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/baechuer/roadside-admin/internal/downstream"
	"github.com/baechuer/roadside-admin/internal/enrich"
	"github.com/baechuer/roadside-admin/internal/logger"
	"github.com/baechuer/roadside-admin/middleware"
)

type options struct {
	url         string
	token       string
	timeout     time.Duration
	concurrency int
	output      string
}

// app is what every subcommand runs against, built once flags are parsed.
type app struct {
	opts     *options
	client   *downstream.DirectoryClient
	enricher *enrich.Enricher
}

func (a *app) context(cmd *cobra.Command) context.Context {
	return middleware.WithUpstreamToken(cmd.Context(), a.opts.token)
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	a := &app{opts: opts}

	root := &cobra.Command{
		Use:   "dirctl",
		Short: "Operate the roadside driver directory",
		Long: `dirctl talks to the driver directory API directly.

Available subcommands:
  users   - List or search registered drivers with their license status
  license - Show a driver's license scans or record a review decision`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger.InitWithWriter(cmd.ErrOrStderr())
			if opts.token == "" {
				opts.token = os.Getenv("DIRCTL_TOKEN")
			}
			if opts.url == "" {
				return fmt.Errorf("--url is required")
			}
			if opts.output != "table" && opts.output != "json" {
				return fmt.Errorf("unknown output format %q (table|json)", opts.output)
			}

			a.client = downstream.NewDirectoryClient(opts.url, downstream.NewClient(downstream.ClientConfig{
				ReadTimeout:  opts.timeout,
				WriteTimeout: opts.timeout,
			}))
			a.enricher = enrich.New(a.client, enrich.Config{
				Concurrency:   opts.concurrency,
				LookupTimeout: opts.timeout,
			})
			return nil
		},
	}

	defaultURL := os.Getenv("DIRECTORY_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8132/api"
	}
	root.PersistentFlags().StringVar(&opts.url, "url", defaultURL, "directory API base URL")
	root.PersistentFlags().StringVar(&opts.token, "token", "", "directory bearer token (default $DIRCTL_TOKEN)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "per-request timeout")
	root.PersistentFlags().IntVar(&opts.concurrency, "concurrency", 8, "max concurrent license lookups")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "table", "output format: table|json")

	root.AddCommand(newUsersCmd(a), newLicenseCmd(a))
	return root
}
