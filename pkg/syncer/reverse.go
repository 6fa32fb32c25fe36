package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/splitwise"
	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/ynab"
)

var (
	// ErrInvalidLookback means a negative lookback window was configured.
	ErrInvalidLookback = errors.New("lookback days must be zero or greater")
	// ErrNoFlagColor means no flag color was configured for reverse sync.
	// A blank color would match every unflagged outflow.
	ErrNoFlagColor = errors.New("no YNAB flag color configured")
	// ErrNoCounterpart means no friend name was configured for reverse sync.
	ErrNoCounterpart = errors.New("no Splitwise counterpart name configured")
)

// AmbiguousMatchError is returned when a friend name does not resolve to
// exactly one Splitwise friend.
type AmbiguousMatchError struct {
	Name       string
	Candidates []string
}

func (e *AmbiguousMatchError) Error() string {
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("no Splitwise friend matches %q", e.Name)
	}
	return fmt.Sprintf("Splitwise friend name %q is ambiguous: %s", e.Name, strings.Join(e.Candidates, ", "))
}

// ResolveFriend finds the single friend whose first name or full name equals
// name, ignoring case and surrounding whitespace.
func ResolveFriend(friends []splitwise.Friend, name string) (splitwise.Friend, error) {
	target := strings.TrimSpace(name)
	if target == "" {
		return splitwise.Friend{}, ErrNoCounterpart
	}

	var matches []splitwise.Friend
	for _, friend := range friends {
		first := strings.TrimSpace(friend.FirstName)
		if strings.EqualFold(first, target) || strings.EqualFold(friend.FullName(), target) {
			matches = append(matches, friend)
		}
	}

	if len(matches) == 1 {
		return matches[0], nil
	}

	candidates := make([]string, 0, len(matches))
	for _, m := range matches {
		candidates = append(candidates, fmt.Sprintf("%s (id %d)", m.FullName(), m.ID))
	}
	return splitwise.Friend{}, &AmbiguousMatchError{Name: target, Candidates: candidates}
}

// SelectFlagged returns the outflows carrying flagColor dated on or after
// cutoff in open on-budget accounts. Deleted, transfer and split
// transactions are never selected, and a blank flagColor selects nothing.
func SelectFlagged(accounts []ynab.Account, txns []ynab.Transaction, flagColor string, cutoff time.Time) []ynab.Transaction {
	flagColor = strings.TrimSpace(flagColor)
	if flagColor == "" {
		return nil
	}

	eligible := make(map[string]bool, len(accounts))
	for _, account := range accounts {
		if account.OnBudget && !account.Closed && !account.Deleted {
			eligible[account.ID] = true
		}
	}

	cutoffDate := time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 0, 0, 0, 0, time.UTC)

	var selected []ynab.Transaction
	for _, tx := range txns {
		if tx.Deleted || !eligible[tx.AccountID] {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(tx.Flag()), flagColor) {
			continue
		}
		if tx.IsSubtransaction() || tx.IsTransfer() || tx.Amount >= 0 {
			continue
		}
		date, err := time.Parse(dateLayout, tx.Date)
		if err != nil || date.Before(cutoffDate) {
			continue
		}
		selected = append(selected, tx)
	}

	return selected
}

// ReverseResult summarizes a YNAB -> Splitwise export.
type ReverseResult struct {
	Cutoff   string
	Friend   splitwise.Friend
	Selected []ynab.Transaction
	Created  int
	Failed   int
	DryRun   bool
}

// Reverse exports flagged YNAB outflows to Splitwise as expenses split
// evenly with the configured friend, clearing the flag of each one created.
// A failure on one transaction is logged and the rest continue.
func (s *Syncer) Reverse(ctx context.Context) (*ReverseResult, error) {
	result := &ReverseResult{DryRun: s.opts.DryRun}

	if s.opts.LookbackDays < 0 {
		return result, fmt.Errorf("%w (got %d)", ErrInvalidLookback, s.opts.LookbackDays)
	}
	if strings.TrimSpace(s.opts.FlagColor) == "" {
		return result, ErrNoFlagColor
	}

	cutoff := s.opts.Now().UTC().AddDate(0, 0, -s.opts.LookbackDays)
	result.Cutoff = cutoff.Format(dateLayout)

	selfID, err := s.expenses.CurrentUserID(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to resolve Splitwise user: %w", err)
	}

	friends, err := s.expenses.ListFriends(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list Splitwise friends: %w", err)
	}
	friend, err := ResolveFriend(friends, s.opts.CounterpartName)
	if err != nil {
		return result, err
	}
	result.Friend = friend

	accounts, err := s.budget.ListAccounts(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list YNAB accounts: %w", err)
	}
	txns, err := s.budget.ListTransactions(ctx, result.Cutoff)
	if err != nil {
		return result, fmt.Errorf("failed to list YNAB transactions: %w", err)
	}

	result.Selected = SelectFlagged(accounts, txns, s.opts.FlagColor, cutoff)
	s.logger.Info("Selected flagged YNAB transactions", "count", len(result.Selected), "flag", s.opts.FlagColor, "since", result.Cutoff)

	for _, tx := range result.Selected {
		req := s.conv.ToExpenseRequest(tx, selfID, friend.ID)

		if s.opts.DryRun {
			s.logger.Info("[DRY RUN] Would create Splitwise expense",
				"transaction_id", tx.ID, "cost", req.Cost, "description", req.Description, "friend", friend.FullName())
			continue
		}

		expense, err := s.expenses.CreateExpense(ctx, req)
		if err != nil {
			result.Failed++
			s.logger.Error("Failed to create Splitwise expense", "transaction_id", tx.ID, "error", err)
			continue
		}

		if err := s.budget.ClearFlag(ctx, tx.ID); err != nil {
			result.Failed++
			s.logger.Error("Created Splitwise expense but failed to clear YNAB flag",
				"transaction_id", tx.ID, "expense_id", expense.ID, "error", err)
			continue
		}

		result.Created++
		s.logger.Info("Created Splitwise expense", "transaction_id", tx.ID, "expense_id", expense.ID, "cost", req.Cost)
	}

	return result, nil
}
