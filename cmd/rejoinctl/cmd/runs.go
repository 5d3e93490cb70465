package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/prperemyshlev/guild-rejoin/internal/app"
	"github.com/prperemyshlev/guild-rejoin/internal/dto"
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect rejoin runs",
}

var runsShowCmd = &cobra.Command{
	Use:   "show RUN_ID",
	Short: "Print the per-user results of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runID := args[0]
		if _, err := uuid.Parse(runID); err != nil {
			return fmt.Errorf("invalid run id %q: %w", runID, err)
		}

		return withServices(cmd, func(services *app.Services) error {
			attempts, err := services.Reconcile.ListAttempts(cmd.Context(), runID)
			if err != nil {
				return err
			}
			if len(attempts) == 0 {
				return fmt.Errorf("run %s not found", runID)
			}
			return printJSON(cmd, dto.NewRunResponse(runID, attempts))
		})
	},
}

func init() {
	runsCmd.AddCommand(runsShowCmd)
}
