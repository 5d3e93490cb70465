package cmd

import (
	"errors"
	"fmt"

	"github.com/prperemyshlev/guild-rejoin/internal/app"
	"github.com/prperemyshlev/guild-rejoin/internal/config"
	"github.com/prperemyshlev/guild-rejoin/internal/dto"
	"github.com/prperemyshlev/guild-rejoin/internal/utils"
	"github.com/spf13/cobra"
)

var (
	reconcileGuildID string
	reconcileNotify  bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Re-add every authorized user to a guild",
	Long: `Runs a rejoin pass in the foreground. Interrupting the command stops the run
between two users; rows already written to the audit log are kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !utils.ValidateSnowflake(reconcileGuildID) {
			return fmt.Errorf("invalid guild id %q", reconcileGuildID)
		}

		return withServices(cmd, func(services *app.Services) error {
			summary, err := services.Reconcile.Reconcile(cmd.Context(), reconcileGuildID, reconcileNotify)
			if summary != nil {
				if printErr := printJSON(cmd, dto.NewSummaryResponse(summary)); printErr != nil {
					return errors.Join(err, printErr)
				}
			}
			return err
		})
	},
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileGuildID, "guild", "", "guild id to rejoin users to")
	reconcileCmd.Flags().BoolVar(&reconcileNotify, "notify", false, "send a welcome DM to newly joined users")
	_ = reconcileCmd.MarkFlagRequired("guild")
}

func withServices(cmd *cobra.Command, fn func(services *app.Services) error) error {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return err
	}

	infra, err := app.NewInfrastructure(cmd.Context(), *cfg)
	if err != nil {
		return err
	}

	services, err := app.NewServices(infra, cfg)
	if err != nil {
		return errors.Join(err, infra.Shutdown(cmd.Context()))
	}

	return errors.Join(fn(services), infra.Shutdown(cmd.Context()))
}
