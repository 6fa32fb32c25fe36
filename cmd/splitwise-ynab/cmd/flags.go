package cmd

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/flagusage"
	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/report"
)

var (
	flagsDays         int
	flagsOnBudgetOnly bool
	flagsShowSamples  int
)

// flagsCmd represents the flags command.
var flagsCmd = &cobra.Command{
	Use:   "flags",
	Short: "List YNAB flag usage",
	Long: `List how YNAB flag colors are used, to help pick a color that is
free to mark transactions for export to Splitwise.

Example:
  splitwise-ynab flags
  splitwise-ynab flags --days 90 --on-budget-only --show-samples 5`,
	Run: runFlags,
}

func init() {
	flagsCmd.Flags().IntVar(&flagsDays, "days", 0, "Only include transactions from the last N days (default: all history)")
	flagsCmd.Flags().BoolVar(&flagsOnBudgetOnly, "on-budget-only", false, "Only include on-budget accounts")
	flagsCmd.Flags().IntVar(&flagsShowSamples, "show-samples", 3, "Show up to this many sample transactions per used flag")
}

func runFlags(cmd *cobra.Command, args []string) {
	cfg := loadConfig(
		[]string{"ynab", "accessToken"},
		[]string{"ynab", "budgetId"},
	)

	var since string
	if cmd.Flags().Changed("days") {
		if flagsDays < 0 {
			exitOnError(errors.New("--days must be >= 0"), "invalid arguments")
		}
		since = time.Now().UTC().AddDate(0, 0, -flagsDays).Format("2006-01-02")
	}

	ctx := cmd.Context()
	yn := newYNABClient(cfg)

	accounts, err := yn.ListAccounts(ctx)
	if err != nil {
		reportFailure(cmd, err, "failed to fetch YNAB accounts")
		return
	}
	txns, err := yn.ListTransactions(ctx, since)
	if err != nil {
		reportFailure(cmd, err, "failed to fetch YNAB transactions")
		return
	}

	usage := flagusage.Summarize(accounts, txns, flagusage.Options{
		OnBudgetOnly: flagsOnBudgetOnly,
		Samples:      flagsShowSamples,
	})
	report.NewPrinter(cmd.OutOrStdout()).FlagUsage(usage, since)
}
