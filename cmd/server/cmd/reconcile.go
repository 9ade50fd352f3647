package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/event-hub/internal/database"
	"github.com/iliyamo/event-hub/internal/service"
)

var reconcileTimeout time.Duration

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Repair data left inconsistent by partial failures",
}

var reconcileOrphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "Delete reservations whose event no longer exists",
	Long: `Delete every reservation that references an event which has been removed.

Event removal deletes the event's reservations in the same request, and in a
transaction when MONGO_TRANSACTIONS is enabled.  Without transactions a crash
between the two deletes can leave reservations behind; this command sweeps
them.

Examples:
  event-hub reconcile orphans
  event-hub reconcile orphans --timeout 5m`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), reconcileTimeout)
		defer cancel()
		ctx = logger.WithContext(ctx)

		st, err := openStores(ctx, cfg.Mongo, logger)
		if err != nil {
			return err
		}
		defer database.Disconnect(context.Background())

		n, err := service.NewReservationService(st.events, st.reservations, nil).ReconcileOrphans(ctx)
		if err != nil {
			return fmt.Errorf("reconcile orphans: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d orphaned reservation(s)\n", n)
		return nil
	},
}

func init() {
	reconcileOrphansCmd.Flags().DurationVar(&reconcileTimeout, "timeout", 2*time.Minute, "overall time limit")
	reconcileCmd.AddCommand(reconcileOrphansCmd)
}
