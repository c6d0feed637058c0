package cmd

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/spf13/cobra"
)

func (c *cli) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <path>",
		Short: "GET a backend path with the session's credentials",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !strings.HasPrefix(path, "/") {
				path = "/" + path
			}
			var body json.RawMessage
			if err := c.app.Gateway.GetJSON(cmd.Context(), path, &body); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		}),
	}
}

func (c *cli) signCmd() *cobra.Command {
	var message, tx string

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a message or a hex encoded transaction payload with the session wallet",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if !c.app.Session.IsAuthenticated() {
				return fmt.Errorf("%w: not logged in", errors.ErrNotConnected)
			}
			switch {
			case message != "" && tx != "":
				return fmt.Errorf("use either --message or --tx")
			case message != "":
				sig, err := c.app.Adapter.SignMessage(ctx, message)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), sig)
			case tx != "":
				payload, err := hex.DecodeString(strings.TrimPrefix(tx, "0x"))
				if err != nil {
					return fmt.Errorf("decoding --tx: %w", err)
				}
				sig, err := c.app.Adapter.SignTransaction(ctx, payload)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "0x%x\n", sig)
			default:
				return fmt.Errorf("one of --message or --tx is required")
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&message, "message", "", "text message to sign")
	cmd.Flags().StringVar(&tx, "tx", "", "hex encoded transaction payload to sign")
	return cmd
}
