// Package admins manages the dashboard allow-list from the command line.
package admins

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/peepybureau/bpi/internal/bureau"
	"github.com/peepybureau/bpi/internal/conf"
	"github.com/peepybureau/bpi/internal/datastore"
)

// Command creates the admins command with list, add and remove subcommands.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admins",
		Short: "Manage the agents allowed into the admin terminal",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List allowed admin emails",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withService(cmd.Context(), settings, func(svc *bureau.Service) error {
					return List(cmd.Context(), svc, cmd.OutOrStdout())
				})
			},
		},
		&cobra.Command{
			Use:   "add <email>",
			Short: "Grant dashboard access",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withService(cmd.Context(), settings, func(svc *bureau.Service) error {
					return Add(cmd.Context(), svc, cmd.OutOrStdout(), args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "remove <email>",
			Short: "Revoke dashboard access; the last admin cannot be removed",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withService(cmd.Context(), settings, func(svc *bureau.Service) error {
					return Remove(cmd.Context(), svc, cmd.OutOrStdout(), args[0])
				})
			},
		},
	)
	return cmd
}

// withService opens the configured datastore for the duration of fn.
func withService(ctx context.Context, settings *conf.Settings, fn func(*bureau.Service) error) error {
	store, err := datastore.New(settings, nil)
	if err != nil {
		return err
	}
	if err := store.Open(); err != nil {
		return err
	}
	defer store.Close()

	return fn(bureau.New(store, bureau.Options{}))
}

// List prints one allowed email per line.
func List(ctx context.Context, svc *bureau.Service, w io.Writer) error {
	settings, err := svc.SiteSettings(ctx)
	if err != nil {
		return err
	}
	if len(settings.AllowedAdmins) == 0 {
		_, err := fmt.Fprintln(w, "No admins configured. The first agent to sign in claims the terminal.")
		return err
	}
	for _, email := range settings.AllowedAdmins {
		if _, err := fmt.Fprintln(w, email); err != nil {
			return err
		}
	}
	return nil
}

// Add grants access to email.
func Add(ctx context.Context, svc *bureau.Service, w io.Writer, email string) error {
	settings, err := svc.AddAdmin(ctx, email)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "Added %s (%d admins)\n", email, len(settings.AllowedAdmins))
	return err
}

// Remove revokes access from email.
func Remove(ctx context.Context, svc *bureau.Service, w io.Writer, email string) error {
	settings, err := svc.RemoveAdmin(ctx, email)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "Removed %s (%d admins)\n", email, len(settings.AllowedAdmins))
	return err
}
