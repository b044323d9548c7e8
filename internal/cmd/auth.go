package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"go-jiractl/internal/auth"
	"go-jiractl/internal/jira"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the SSO browser session",
	}
	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthTestCmd(),
		newAuthCookiesCmd(),
		newAuthLogoutCmd(),
	)
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Open a browser, complete the SSO login and save the session cookies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			return a.manager.Refresh(cmd.Context())
		},
	}
}

func newAuthTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Check whether the saved session is still valid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			if _, ok := a.store.CookieHeader(); !ok {
				return fmt.Errorf("no saved session, run 'jiractl auth login' first")
			}

			// Probe with cookie auth only: a valid API token must not mask
			// an expired session.
			client := jira.NewClient(a.cfg.URL, &auth.CookieAuth{Source: a.store})
			me, err := client.Myself(cmd.Context())
			if err != nil {
				return fmt.Errorf("session invalid or expired, run 'jiractl auth login': %w", err)
			}

			pterm.Success.Printfln("Session valid, logged in as %s", me.DisplayName)
			return nil
		},
	}
}

func newAuthCookiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cookies",
		Short: "Print the Cookie header value for curl and scripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			header, ok := a.store.CookieHeader()
			if !ok {
				return fmt.Errorf("no saved session, run 'jiractl auth login' first")
			}
			fmt.Println(header)
			return nil
		},
	}
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Delete the saved session cookies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.store.Clear(); err != nil {
				return fmt.Errorf("remove session file: %w", err)
			}
			pterm.Success.Println("Session cleared")
			return nil
		},
	}
}
