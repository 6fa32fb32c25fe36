package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/converter"
	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/report"
	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/syncer"
)

var (
	direction string
	dryRun    bool
)

// syncCmd represents the sync command.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync Splitwise and YNAB in both directions",
	Long: `Sync shared expenses between Splitwise and YNAB.

This command:
1. Exports flagged YNAB outflows to Splitwise, split 50/50 with
   SPLITWISE_DEFAULT_PERSON_NAME, and clears their flag
2. Imports your share of recently updated Splitwise expenses into
   YNAB_ACCOUNT_ID, using the expense id as import id

A failure in step 1 is reported and step 2 still runs.

Example:
  splitwise-ynab sync
  splitwise-ynab sync --direction forward --dry-run`,
	Run: runSync,
}

func init() {
	// Flags
	syncCmd.Flags().StringVar(&direction, "direction", string(syncer.DirectionBoth), "both, forward (Splitwise -> YNAB) or reverse (YNAB -> Splitwise)")
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Dry run mode (no writes to either service)")
}

func runSync(cmd *cobra.Command, args []string) {
	dir, err := syncer.ParseDirection(direction)
	exitOnError(err, "invalid --direction")

	required := [][]string{
		{"splitwise", "apiKey"},
		{"ynab", "accessToken"},
		{"ynab", "budgetId"},
	}
	if dir != syncer.DirectionReverse {
		required = append(required, []string{"ynab", "accountId"})
	}
	cfg := loadConfig(required...)

	profile, err := converter.LoadProfile(cfg.Sync.ProfilePath)
	exitOnError(err, "failed to load sync profile")

	opts := syncer.Options{
		AccountID:       cfg.YNAB.AccountID,
		DryRun:          dryRun || cfg.Sync.DryRun,
		SyncDays:        cfg.Sync.SyncDays,
		MaxRecords:      cfg.Sync.SyncMaxRecords,
		FlagColor:       cfg.Sync.FlagColor,
		LookbackDays:    cfg.Sync.LookbackDays,
		CounterpartName: cfg.Splitwise.DefaultPersonName,
	}

	slog.Info("Starting sync", "direction", dir, "dry_run", opts.DryRun, "label", profile.Label)

	s := syncer.New(
		newSplitwiseClient(cfg),
		newYNABClient(cfg),
		converter.NewConverter(profile, cfg.YNAB.AccountID),
		opts,
		slog.Default(),
	)

	result, err := s.Run(cmd.Context(), dir)
	report.NewPrinter(cmd.OutOrStdout()).Sync(result)
	if err != nil {
		reportFailure(cmd, err, "Splitwise -> YNAB sync failed")
		return
	}

	slog.Info("Sync completed")
}
