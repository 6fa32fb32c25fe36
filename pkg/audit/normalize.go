package audit

import (
	"fmt"

	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/converter"
	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/splitwise"
	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/ynab"
)

// ExpenseRow is the normalized listing of a Splitwise expense.
type ExpenseRow struct {
	SplitwiseID      string
	Date             string
	AmountMilliunits int64
	Description      string
	MalformedAmount  bool
}

func (r ExpenseRow) String() string {
	amount := fmt.Sprintf("%d", r.AmountMilliunits)
	if r.MalformedAmount {
		amount = "malformed"
	}
	return fmt.Sprintf("splitwise_id=%s date=%s amount_milliunits=%s description=%q",
		r.SplitwiseID, r.Date, amount, r.Description)
}

// TransactionRow is the normalized listing of a YNAB transaction.
type TransactionRow struct {
	YNABTransactionID string
	ImportID          string
	Date              string
	AmountMilliunits  int64
	PayeeName         string
	Memo              string
}

func (r TransactionRow) String() string {
	return fmt.Sprintf("ynab_transaction_id=%s import_id=%s date=%s amount_milliunits=%d payee=%q memo=%q",
		r.YNABTransactionID, r.ImportID, r.Date, r.AmountMilliunits, r.PayeeName, r.Memo)
}

// NormalizeExpenses lists active expenses as the amounts YNAB should show.
func NormalizeExpenses(expenses []splitwise.Expense, selfID int64, conv *converter.Converter) []ExpenseRow {
	var rows []ExpenseRow
	for _, expense := range ActiveExpenses(expenses) {
		row := ExpenseRow{
			SplitwiseID: converter.ImportID(expense),
			Date:        converter.DateOnly(expense.Date),
			Description: expense.Description,
		}
		if exp, _, err := conv.Expected(expense, selfID); err != nil {
			row.MalformedAmount = true
		} else {
			row.AmountMilliunits = exp.Amount
		}
		rows = append(rows, row)
	}
	return rows
}

// NormalizeTransactions lists active YNAB transactions.
func NormalizeTransactions(txns []ynab.Transaction) []TransactionRow {
	var rows []TransactionRow
	for _, tx := range ActiveTransactions(txns) {
		rows = append(rows, TransactionRow{
			YNABTransactionID: tx.ID,
			ImportID:          tx.ImportKey(),
			Date:              tx.Date,
			AmountMilliunits:  tx.Amount,
			PayeeName:         tx.PayeeText(),
			Memo:              tx.MemoText(),
		})
	}
	return rows
}
