// Package syncer runs the Splitwise -> YNAB import and the YNAB -> Splitwise
// export of flagged transactions.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/converter"
	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/splitwise"
	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/ynab"
)

// ExpenseService is the subset of the Splitwise API the syncer uses.
type ExpenseService interface {
	CurrentUserID(ctx context.Context) (int64, error)
	FetchAllExpenses(ctx context.Context, updatedAfter string, maxRecords int) ([]splitwise.Expense, error)
	ListFriends(ctx context.Context) ([]splitwise.Friend, error)
	CreateExpense(ctx context.Context, req splitwise.CreateExpenseRequest) (*splitwise.Expense, error)
}

// BudgetService is the subset of the YNAB API the syncer uses.
type BudgetService interface {
	ListAccounts(ctx context.Context) ([]ynab.Account, error)
	ListTransactions(ctx context.Context, sinceDate string) ([]ynab.Transaction, error)
	CreateTransactions(ctx context.Context, txns []ynab.NewTransaction) (*ynab.SaveResult, error)
	ClearFlag(ctx context.Context, transactionID string) error
}

// Direction selects which sync phases run.
type Direction string

const (
	DirectionBoth    Direction = "both"
	DirectionForward Direction = "forward"
	DirectionReverse Direction = "reverse"
)

// ParseDirection validates a direction name.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case DirectionBoth, DirectionForward, DirectionReverse:
		return d, nil
	case "":
		return DirectionBoth, nil
	}
	return "", fmt.Errorf("invalid direction %q (want both, forward or reverse)", s)
}

// Options configures a Syncer.
type Options struct {
	// AccountID is the YNAB account imported expenses land in.
	AccountID string
	DryRun    bool

	// SyncDays and MaxRecords bound the Splitwise fetch window.
	SyncDays   int
	MaxRecords int

	// FlagColor marks YNAB transactions for export; LookbackDays bounds their age.
	FlagColor       string
	LookbackDays    int
	CounterpartName string

	// Now defaults to time.Now.
	Now func() time.Time
}

// Syncer moves records between Splitwise and YNAB.
type Syncer struct {
	expenses ExpenseService
	budget   BudgetService
	conv     *converter.Converter
	opts     Options
	logger   *slog.Logger
}

// New creates a new Syncer. A nil logger uses slog.Default().
func New(expenses ExpenseService, budget BudgetService, conv *converter.Converter, opts Options, logger *slog.Logger) *Syncer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		expenses: expenses,
		budget:   budget,
		conv:     conv,
		opts:     opts,
		logger:   logger,
	}
}

// Report collects the results of a Run.
type Report struct {
	Reverse    *ReverseResult
	ReverseErr error
	Forward    *ForwardResult
}

// Run executes the selected phases, reverse first. A reverse failure is
// logged and recorded in the report; the forward phase still runs and its
// failure is returned.
func (s *Syncer) Run(ctx context.Context, direction Direction) (*Report, error) {
	report := &Report{}

	if direction == DirectionBoth || direction == DirectionReverse {
		result, err := s.Reverse(ctx)
		report.Reverse = result
		if err != nil {
			s.logger.Error("YNAB->Splitwise sync aborted", "error", err)
			report.ReverseErr = err
		}
	}

	if direction == DirectionBoth || direction == DirectionForward {
		result, err := s.Forward(ctx)
		report.Forward = result
		if err != nil {
			return report, err
		}
	}

	return report, nil
}

// daysAgo returns the UTC calendar date days before now as YYYY-MM-DD.
func (s *Syncer) daysAgo(days int) string {
	return s.opts.Now().UTC().AddDate(0, 0, -days).Format(dateLayout)
}

const dateLayout = "2006-01-02"
