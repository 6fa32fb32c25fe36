package cmd

import (
	"errors"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/audit"
	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/converter"
	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/report"
)

var (
	auditDays             int
	auditMaxRecords       int
	auditAccountID        string
	auditShow             int
	auditListTransactions bool
)

// auditCmd represents the audit command.
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Report Splitwise expenses missing or different in YNAB",
	Long: `Compare the YNAB transactions recent Splitwise expenses should have
produced with the ones the YNAB account actually holds.

Shows:
- Expenses with no YNAB transaction carrying their import id
- Imported transactions whose amount, date or memo has drifted
- Optionally, normalized listings of both sides

Nothing is written to either service.

Example:
  splitwise-ynab audit
  splitwise-ynab audit --days 90 --show 50 --list-transactions`,
	Run: runAudit,
}

func init() {
	auditCmd.Flags().IntVar(&auditDays, "days", 30, "Look back this many days")
	auditCmd.Flags().IntVar(&auditMaxRecords, "max-records", 1000, "Max Splitwise expenses to fetch within the window")
	auditCmd.Flags().StringVar(&auditAccountID, "account-id", "", "YNAB account id to audit (default: YNAB_ACCOUNT_ID)")
	auditCmd.Flags().IntVar(&auditShow, "show", 20, "How many rows to print per section")
	auditCmd.Flags().BoolVar(&auditListTransactions, "list-transactions", false, "Also print normalized Splitwise and YNAB transaction lists")
}

func runAudit(cmd *cobra.Command, args []string) {
	cfg := loadConfig(
		[]string{"splitwise", "apiKey"},
		[]string{"ynab", "accessToken"},
		[]string{"ynab", "budgetId"},
	)

	accountID := auditAccountID
	if accountID == "" {
		accountID = cfg.YNAB.AccountID
	}
	if accountID == "" {
		exitOnError(errors.New("set YNAB_ACCOUNT_ID or use --account-id"), "no YNAB account id supplied")
	}
	if auditDays < 0 {
		exitOnError(errors.New("--days must be >= 0"), "invalid arguments")
	}

	profile, err := converter.LoadProfile(cfg.Sync.ProfilePath)
	exitOnError(err, "failed to load sync profile")
	conv := converter.NewConverter(profile, accountID)

	ctx := cmd.Context()
	since := time.Now().UTC().AddDate(0, 0, -auditDays).Format("2006-01-02")
	sw := newSplitwiseClient(cfg)
	yn := newYNABClient(cfg)

	selfID, err := sw.CurrentUserID(ctx)
	if err != nil {
		reportFailure(cmd, err, "failed to resolve Splitwise user")
		return
	}

	slog.Info("Fetching Splitwise expenses", "updated_after", since, "max_records", auditMaxRecords)
	expenses, err := sw.FetchAllExpenses(ctx, since, auditMaxRecords)
	if err != nil {
		reportFailure(cmd, err, "failed to fetch Splitwise expenses")
		return
	}

	slog.Info("Fetching YNAB transactions", "account_id", accountID, "since_date", since)
	txns, err := yn.ListAccountTransactions(ctx, accountID, since)
	if err != nil {
		reportFailure(cmd, err, "failed to fetch YNAB transactions")
		return
	}

	r := report.AuditReport{
		Since:     since,
		AccountID: accountID,
		Result:    audit.Compare(expenses, txns, selfID, conv),
		Show:      auditShow,
	}
	if auditListTransactions {
		r.Expenses = audit.NormalizeExpenses(expenses, selfID, conv)
		r.Transactions = audit.NormalizeTransactions(txns)
	}

	report.NewPrinter(cmd.OutOrStdout()).Audit(r)
}
