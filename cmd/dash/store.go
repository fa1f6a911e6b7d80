package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ghabxph/dash-on-slack/internal/repository"
)

func newStoreCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Inspect the installation store",
	}

	var showToken bool
	get := &cobra.Command{
		Use:   "get <team-or-enterprise-id>",
		Short: "Print a stored installation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := repository.NewInstallationStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			inst, err := store.Fetch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !showToken {
				inst.BotToken = redact(inst.BotToken)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(inst)
		},
	}
	get.Flags().BoolVar(&showToken, "show-token", false, "print the bot token instead of a redacted form")

	del := &cobra.Command{
		Use:   "delete <team-or-enterprise-id>",
		Short: "Remove a stored installation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := repository.NewInstallationStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(get, del)
	return cmd
}

// redact keeps the token type prefix and the last four characters.
func redact(token string) string {
	if len(token) <= 9 {
		return "****"
	}
	return token[:5] + "****" + token[len(token)-4:]
}
