// Package cmd holds the remitctl commands. Each invocation builds the application, restores
// the stored session and runs one command against it.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jrsteele09/go-auth-session/app"
	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/internal/logging"
	"github.com/spf13/cobra"
)

// cli carries what the commands share. app is built before each command runs.
type cli struct {
	cfg     config.Config
	options []app.Option
	app     *app.App
}

// Execute runs remitctl with the process arguments. Configuration comes from the environment,
// topped up from a .env file in the working directory.
func Execute(ctx context.Context) error {
	if err := config.LoadEnvFile(); err != nil {
		return err
	}
	cfg := config.New()
	logging.Setup(cfg.GetEnv(), cfg.GetLogLevel())
	return NewRootCmd(cfg).ExecuteContext(ctx)
}

func NewRootCmd(cfg config.Config, options ...app.Option) *cobra.Command {
	c := &cli{cfg: cfg, options: options}

	root := &cobra.Command{
		Use:          "remitctl",
		Short:        "Remit wallet session client",
		Long:         `Log in to the remittance wallet, inspect the session and make authenticated API calls.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.open(cmd)
		},
	}

	root.AddCommand(
		c.loginCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.tokenCmd(),
		c.getCmd(),
		c.signCmd(),
	)
	return root
}

func (c *cli) open(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	opts := append([]app.Option{
		app.WithPrompt(func(uri, code string) {
			fmt.Fprintf(out, "Open %s and enter the code %s\n", uri, code)
		}),
		app.WithOnUnauthorized(func(context.Context) {
			fmt.Fprintln(cmd.ErrOrStderr(), "Session ended, run `remitctl login` to sign in again")
		}),
	}, c.options...)

	a, err := app.New(cmd.Context(), c.cfg, opts...)
	if err != nil {
		return err
	}
	c.app = a
	return nil
}

// run wraps a command body so the application is closed even when the body fails.
func (c *cli) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if closeErr := c.close(); err == nil {
				err = closeErr
			}
		}()
		return fn(cmd, args)
	}
}

func (c *cli) close() error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	c.app = nil
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
