package cmd

import (
	"fmt"

	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/provider"
	"github.com/spf13/cobra"
)

func (c *cli) loginCmd() *cobra.Command {
	var method, value string
	var quiet bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Long: `Sign in with google (default), email, phone or custom. The email, phone number or custom
token is passed with --value.`,
		Args: cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, _ []string) error {
			opts, err := provider.ParseLoginOptions(method, value)
			if err != nil {
				return err
			}
			if !quiet {
				printBanner(cmd.OutOrStdout(), c.cfg.GetAppName())
			}
			u, err := c.app.Session.Login(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", u.Name(), u.ID)
			if u.WalletAddress != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Wallet %s\n", u.WalletAddress)
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&method, "method", "m", string(provider.MethodGoogle), "login method: google, email, phone or custom")
	cmd.Flags().StringVar(&value, "value", "", "email address, phone number or custom token")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print the banner")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget stored credentials",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, _ []string) error {
			if err := c.app.Session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		}),
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in user",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, _ []string) error {
			u := c.app.Session.User()
			if u == nil {
				return fmt.Errorf("%w: not logged in", errors.ErrUnauthorized)
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), u)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:      %s\n", u.ID)
			fmt.Fprintf(out, "Name:    %s\n", u.Name())
			if u.Email != "" {
				fmt.Fprintf(out, "Email:   %s\n", u.Email)
			}
			if u.Phone != "" {
				fmt.Fprintf(out, "Phone:   %s\n", u.Phone)
			}
			if u.WalletAddress != "" {
				fmt.Fprintf(out, "Wallet:  %s\n", u.WalletAddress)
			}
			if u.IsSuspended() {
				fmt.Fprintln(out, "Status:  suspended")
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the user as JSON")
	return cmd
}

func (c *cli) tokenCmd() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a valid access token",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if refresh {
				if _, err := c.app.Session.Refresh(ctx); err != nil {
					return err
				}
			}
			tok, ok := c.app.Adapter.Token(ctx)
			if !ok {
				return fmt.Errorf("%w: not logged in", errors.ErrNoToken)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "force a refresh before printing")
	return cmd
}
