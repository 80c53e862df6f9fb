package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <email> <password>",
		Short: "Authenticate and persist the session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			a.sessions.Rehydrate(ctx)
			if err := a.sessions.Login(ctx, args[0], args[1]); err != nil {
				return err
			}

			snap := a.sessions.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s <%s> (%s)\n", snap.User.Name, snap.User.Email, snap.User.Role)
			return nil
		},
	}
}

func newRegisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register <email> <password> <name>",
		Short: "Create an account and start a session",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			a.sessions.Rehydrate(ctx)
			if err := a.sessions.Register(ctx, args[0], args[1], args[2]); err != nil {
				return err
			}

			snap := a.sessions.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s <%s>\n", snap.User.Name, snap.User.Email)
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the persisted session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			a.sessions.Rehydrate(ctx)
			a.sessions.Logout(ctx)
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			a.sessions.Rehydrate(cmd.Context())
			snap := a.sessions.Snapshot()
			if !snap.IsAuthenticated() {
				fmt.Fprintln(cmd.OutOrStdout(), "not logged in")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (%s)\n", snap.User.Name, snap.User.Email, snap.User.Role)
			return nil
		},
	}
}
