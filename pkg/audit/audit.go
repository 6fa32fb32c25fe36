// Package audit compares the YNAB transactions Splitwise should have produced
// with the ones YNAB actually holds. It never writes to either service.
package audit

import (
	"fmt"
	"strings"

	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/converter"
	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/splitwise"
	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/ynab"
)

// Compared fields, in reporting order.
const (
	FieldAmount = "amount"
	FieldDate   = "date"
	FieldMemo   = "memo"
)

// FieldDiff is one field whose YNAB value differs from the expected one.
type FieldDiff struct {
	Field    string
	Expected interface{}
	Actual   interface{}
}

// Difference is an expense whose YNAB transaction has drifted.
type Difference struct {
	SplitwiseID       string
	YNABTransactionID string
	Fields            []FieldDiff
}

// Field returns the diff for the named field.
func (d Difference) Field(name string) (FieldDiff, bool) {
	for _, f := range d.Fields {
		if f.Field == name {
			return f, true
		}
	}
	return FieldDiff{}, false
}

func (d Difference) String() string {
	parts := make([]string, 0, len(d.Fields))
	for _, f := range d.Fields {
		parts = append(parts, fmt.Sprintf("%s: expected %v, actual %v", f.Field, quoteIfString(f.Expected), quoteIfString(f.Actual)))
	}
	return fmt.Sprintf("splitwise_id=%s ynab_transaction_id=%s {%s}", d.SplitwiseID, d.YNABTransactionID, strings.Join(parts, "; "))
}

// Result is the outcome of Compare.
type Result struct {
	SplitwiseCount int
	YNABCount      int
	Missing        []converter.Expected
	Different      []Difference
	// Malformed holds expenses that could not be mapped at all.
	Malformed []error
}

// Compare maps every active expense to its expected YNAB record and checks
// it against the active YNAB transactions indexed by import id.
// Reconciled records are not reported.
func Compare(expenses []splitwise.Expense, txns []ynab.Transaction, selfID int64, conv *converter.Converter) Result {
	var result Result

	var expected []converter.Expected
	seen := make(map[string]bool)
	for _, expense := range ActiveExpenses(expenses) {
		result.SplitwiseCount++

		exp, _, err := conv.Expected(expense, selfID)
		if err != nil {
			result.Malformed = append(result.Malformed, err)
			continue
		}
		if seen[exp.ID] {
			continue
		}
		seen[exp.ID] = true
		expected = append(expected, exp)
	}

	byImportID := make(map[string]ynab.Transaction)
	for _, tx := range ActiveTransactions(txns) {
		result.YNABCount++

		importID := strings.TrimSpace(tx.ImportKey())
		if importID != "" {
			byImportID[importID] = tx
		}
	}

	for _, exp := range expected {
		tx, ok := byImportID[exp.ID]
		if !ok {
			result.Missing = append(result.Missing, exp)
			continue
		}

		if fields := diffFields(exp, tx); len(fields) > 0 {
			result.Different = append(result.Different, Difference{
				SplitwiseID:       exp.ID,
				YNABTransactionID: tx.ID,
				Fields:            fields,
			})
		}
	}

	return result
}

func diffFields(exp converter.Expected, tx ynab.Transaction) []FieldDiff {
	var fields []FieldDiff
	if tx.Amount != exp.Amount {
		fields = append(fields, FieldDiff{Field: FieldAmount, Expected: exp.Amount, Actual: tx.Amount})
	}
	if tx.Date != exp.Date {
		fields = append(fields, FieldDiff{Field: FieldDate, Expected: exp.Date, Actual: tx.Date})
	}
	if memo := tx.MemoText(); memo != exp.Memo {
		fields = append(fields, FieldDiff{Field: FieldMemo, Expected: exp.Memo, Actual: memo})
	}
	return fields
}

// ActiveExpenses drops expenses Splitwise marked as deleted.
func ActiveExpenses(expenses []splitwise.Expense) []splitwise.Expense {
	active := make([]splitwise.Expense, 0, len(expenses))
	for _, e := range expenses {
		if !e.IsDeleted() {
			active = append(active, e)
		}
	}
	return active
}

// ActiveTransactions drops deleted YNAB transactions.
func ActiveTransactions(txns []ynab.Transaction) []ynab.Transaction {
	active := make([]ynab.Transaction, 0, len(txns))
	for _, t := range txns {
		if !t.Deleted {
			active = append(active, t)
		}
	}
	return active
}

func quoteIfString(v interface{}) interface{} {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return v
}
