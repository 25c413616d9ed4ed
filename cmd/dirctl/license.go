package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/baechuer/roadside-admin/internal/domain"
)

func newLicenseCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "license",
		Short: "Inspect or decide a driver's license",
	}

	show := &cobra.Command{
		Use:   "show <email>",
		Short: "Show license status and scan URLs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := a.client.LookupLicense(a.context(cmd), args[0])
			if err != nil {
				return err
			}
			status, err := domain.ParseLicenseStatus(info.Status)
			if err != nil && !errors.Is(err, domain.ErrUnknownLicenseStatus) {
				return err
			}
			return writeLicense(cmd.OutOrStdout(), a.opts.output, args[0], status, info.Images)
		},
	}

	cmd.AddCommand(show,
		decisionCmd(a, domain.DecisionApproved, "approve", "Mark the license as verified"),
		decisionCmd(a, domain.DecisionRejected, "reject", "Mark the license as rejected"),
	)
	return cmd
}

func decisionCmd(a *app, decision domain.Decision, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <email>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.UpdateLicenseStatus(a.context(cmd), args[0], decision); err != nil {
				return fmt.Errorf("%s %s: %w", use, args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", args[0], decision.Status())
			return nil
		},
	}
}
