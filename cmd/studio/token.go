package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"storystudio/internal/infra/credentials"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the generation webhook token kept in the database",
}

var tokenSetCmd = &cobra.Command{
	Use:   "set [token]",
	Short: "Store the bearer token sent with webhook calls (falls back to TRIGGER_TOKEN)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token := strings.TrimSpace(os.Getenv("TRIGGER_TOKEN"))
		if len(args) == 1 {
			token = strings.TrimSpace(args[0])
		}
		if token == "" {
			return errors.New("token is required as an argument or via TRIGGER_TOKEN")
		}

		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		if err := credentials.NewStore(e.runner).SetTriggerToken(ctx, token); err != nil {
			return fmt.Errorf("store token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "webhook token stored")
		return nil
	},
}

var tokenShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Report whether a webhook token is stored",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		token, err := credentials.NewStore(e.runner).TriggerToken(ctx)
		if err != nil {
			return err
		}
		if token == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "no webhook token stored")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "webhook token stored (%s)\n", mask(token))
		return nil
	},
}

func mask(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}

func init() {
	tokenCmd.AddCommand(tokenSetCmd, tokenShowCmd)
}
