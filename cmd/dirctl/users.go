package main

import (
	"github.com/spf13/cobra"

	"github.com/baechuer/roadside-admin/internal/domain"
)

func newUsersCmd(a *app) *cobra.Command {
	var noEnrich bool

	cmd := &cobra.Command{
		Use:   "users",
		Short: "List or search registered drivers",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every driver with license status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := a.context(cmd)
			users, err := a.client.FetchAllUsers(ctx)
			if err != nil {
				return err
			}
			if !noEnrich {
				users = a.enricher.Enrich(ctx, users)
			}
			return writeUsers(cmd.OutOrStdout(), a.opts.output, users)
		},
	}

	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Search drivers by name, email, phone or vehicle",
		Long: `Search matches the query against first and last name, email, phone,
vehicle model and color, plate number and plate letters. Whitespace and case
are ignored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.context(cmd)
			users, err := a.client.SearchUsers(ctx, args[0])
			if err != nil {
				return err
			}
			if !noEnrich {
				users = a.enricher.Enrich(ctx, users)
			}
			return writeUsers(cmd.OutOrStdout(), a.opts.output, users)
		},
	}

	cmd.PersistentFlags().BoolVar(&noEnrich, "no-enrich", false, "skip license lookups; every status shows Pending")
	cmd.AddCommand(list, search)
	return cmd
}

func usersOrEmpty(users []domain.User) []domain.User {
	if users == nil {
		return []domain.User{}
	}
	return users
}
