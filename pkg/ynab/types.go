// Package ynab provides a YNAB API client and types.
package ynab

// Cleared statuses accepted by YNAB.
const (
	ClearedCleared    = "cleared"
	ClearedUncleared  = "uncleared"
	ClearedReconciled = "reconciled"
)

// KnownFlagColors are the flag colors YNAB offers in its UI.
var KnownFlagColors = []string{"red", "orange", "yellow", "green", "blue", "purple"}

// Account represents a budget account.
type Account struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	OnBudget bool   `json:"on_budget"`
	Closed   bool   `json:"closed"`
	Deleted  bool   `json:"deleted"`
}

// Transaction represents a transaction as returned by YNAB.
// Amount is in milliunits.
type Transaction struct {
	ID                  string  `json:"id"`
	Date                string  `json:"date"` // YYYY-MM-DD
	Amount              int64   `json:"amount"`
	Memo                *string `json:"memo"`
	Cleared             string  `json:"cleared"`
	Approved            bool    `json:"approved"`
	FlagColor           *string `json:"flag_color"`
	AccountID           string  `json:"account_id"`
	PayeeName           *string `json:"payee_name"`
	TransferAccountID   *string `json:"transfer_account_id"`
	ImportID            *string `json:"import_id"`
	ParentTransactionID *string `json:"parent_transaction_id,omitempty"`
	Deleted             bool    `json:"deleted"`
}

// MemoText returns the memo, or "" when unset.
func (t Transaction) MemoText() string { return deref(t.Memo) }

// PayeeText returns the payee name, or "" when unset.
func (t Transaction) PayeeText() string { return deref(t.PayeeName) }

// ImportKey returns the import id, or "" when unset.
func (t Transaction) ImportKey() string { return deref(t.ImportID) }

// Flag returns the flag color, or "" when unflagged.
func (t Transaction) Flag() string { return deref(t.FlagColor) }

// IsTransfer reports whether the transaction moves money between accounts.
func (t Transaction) IsTransfer() bool { return deref(t.TransferAccountID) != "" }

// IsSubtransaction reports whether the transaction is part of a split.
func (t Transaction) IsSubtransaction() bool { return deref(t.ParentTransactionID) != "" }

// NewTransaction is a transaction to create.
type NewTransaction struct {
	AccountID string  `json:"account_id"`
	Date      string  `json:"date"`
	Amount    int64   `json:"amount"`
	PayeeName string  `json:"payee_name,omitempty"`
	Memo      string  `json:"memo,omitempty"`
	Cleared   string  `json:"cleared,omitempty"`
	Approved  bool    `json:"approved"`
	FlagColor *string `json:"flag_color,omitempty"`
	ImportID  string  `json:"import_id,omitempty"`
}

// SaveTransactionsRequest is the body of POST /budgets/{id}/transactions.
type SaveTransactionsRequest struct {
	Transactions []NewTransaction `json:"transactions"`
}

// SaveResult is the data member of a bulk create response.
type SaveResult struct {
	TransactionIDs     []string      `json:"transaction_ids"`
	Transactions       []Transaction `json:"transactions,omitempty"`
	DuplicateImportIDs []string      `json:"duplicate_import_ids"`
}

// SaveTransactionsResponse wraps SaveResult.
type SaveTransactionsResponse struct {
	Data SaveResult `json:"data"`
}

// FlagUpdate is the patchable subset used to set or clear a flag.
// A nil FlagColor is sent as JSON null, which clears the flag.
type FlagUpdate struct {
	FlagColor *string `json:"flag_color"`
}

// UpdateTransactionRequest is the body of PATCH /budgets/{id}/transactions/{tid}.
type UpdateTransactionRequest struct {
	Transaction FlagUpdate `json:"transaction"`
}

// TransactionResponse wraps a single transaction.
type TransactionResponse struct {
	Data struct {
		Transaction Transaction `json:"transaction"`
	} `json:"data"`
}

// TransactionsResponse wraps a transaction list.
type TransactionsResponse struct {
	Data struct {
		Transactions []Transaction `json:"transactions"`
	} `json:"data"`
}

// AccountsResponse wraps an account list.
type AccountsResponse struct {
	Data struct {
		Accounts []Account `json:"accounts"`
	} `json:"data"`
}

// ErrorResponse represents an error body from YNAB.
type ErrorResponse struct {
	Error struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Detail string `json:"detail"`
	} `json:"error"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// String returns a pointer to s.
func String(s string) *string { return &s }
