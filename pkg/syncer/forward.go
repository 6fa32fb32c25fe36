package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/audit"
	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/ynab"
)

// ErrAccountUnavailable means the configured YNAB account cannot receive imports.
var ErrAccountUnavailable = errors.New("ynab account unavailable")

// ForwardResult summarizes a Splitwise -> YNAB import.
type ForwardResult struct {
	UpdatedAfter string
	Fetched      int
	Deleted      int
	Skipped      int
	DryRun       bool
	// Transactions is the batch that was (or would have been) posted.
	Transactions []ynab.NewTransaction
	Created      int
	Duplicates   []string
}

// Forward imports recently updated Splitwise expenses into YNAB as a single
// batch. Failing to resolve the Splitwise user or the YNAB account aborts
// the run; an expense that cannot be mapped is skipped.
func (s *Syncer) Forward(ctx context.Context) (*ForwardResult, error) {
	result := &ForwardResult{
		UpdatedAfter: s.daysAgo(s.opts.SyncDays),
		DryRun:       s.opts.DryRun,
	}

	selfID, err := s.expenses.CurrentUserID(ctx)
	if err != nil {
		return result, fmt.Errorf("cannot import Splitwise expenses without the current user id: %w", err)
	}

	if err := s.resolveAccount(ctx); err != nil {
		return result, err
	}

	s.logger.Info("Fetching expenses from Splitwise", "updated_after", result.UpdatedAfter, "max_records", s.opts.MaxRecords)
	expenses, err := s.expenses.FetchAllExpenses(ctx, result.UpdatedAfter, s.opts.MaxRecords)
	if err != nil {
		return result, fmt.Errorf("failed to fetch expenses: %w", err)
	}

	active := audit.ActiveExpenses(expenses)
	result.Fetched = len(active)
	result.Deleted = len(expenses) - len(active)
	s.logger.Info("Fetched expenses", "active", result.Fetched, "deleted", result.Deleted)

	for _, expense := range active {
		txn, desc, err := s.conv.ToTransaction(expense, selfID)
		for _, m := range desc.Malformed {
			s.logger.Warn("Excluded participant with malformed share", "expense_id", m.ExpenseID, "user_id", m.UserID, "value", m.Value)
		}
		if err != nil {
			result.Skipped++
			s.logger.Error("Skipping expense", "expense_id", expense.ID, "error", err)
			continue
		}
		s.logger.Debug("Mapped expense", "expense_id", expense.ID, "amount", txn.Amount, "payee", txn.PayeeName)
		result.Transactions = append(result.Transactions, txn)
	}

	if len(result.Transactions) == 0 {
		s.logger.Info("No Splitwise transactions to import into YNAB")
		return result, nil
	}

	if s.opts.DryRun {
		for _, txn := range result.Transactions {
			s.logger.Info("[DRY RUN] Would import transaction", "import_id", txn.ImportID, "date", txn.Date, "amount", txn.Amount, "payee", txn.PayeeName)
		}
		return result, nil
	}

	saved, err := s.budget.CreateTransactions(ctx, result.Transactions)
	if err != nil {
		return result, fmt.Errorf("failed to import %d transactions: %w", len(result.Transactions), err)
	}

	result.Created = len(saved.TransactionIDs)
	result.Duplicates = saved.DuplicateImportIDs
	s.logger.Info("Imported transactions into YNAB", "created", result.Created, "duplicates", len(result.Duplicates))

	return result, nil
}

func (s *Syncer) resolveAccount(ctx context.Context) error {
	accounts, err := s.budget.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve YNAB account: %w", err)
	}

	for _, account := range accounts {
		if account.ID != s.opts.AccountID {
			continue
		}
		if account.Deleted || account.Closed {
			return fmt.Errorf("%w: %s is closed or deleted", ErrAccountUnavailable, s.opts.AccountID)
		}
		return nil
	}

	return fmt.Errorf("%w: %s not found in budget", ErrAccountUnavailable, s.opts.AccountID)
}
