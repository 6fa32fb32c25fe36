package emulator

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/ynab"
)

// YNABHandler serves the YNAB v1 budget endpoints.
type YNABHandler struct {
	store *Store
}

// NewYNABHandler creates a new YNABHandler.
func NewYNABHandler(s *Store) *YNABHandler {
	return &YNABHandler{store: s}
}

// BudgetCtx rejects requests for any budget other than the emulated one.
func (h *YNABHandler) BudgetCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "budgetID") != h.store.BudgetID() {
			writeYNABError(w, http.StatusNotFound, "Budget not found")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListAccounts handles GET /budgets/{budgetID}/accounts.
func (h *YNABHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.store.ListAccounts()
	if err != nil {
		writeYNABError(w, http.StatusInternalServerError, "Failed to list accounts")
		return
	}

	var resp ynab.AccountsResponse
	resp.Data.Accounts = accounts
	writeJSON(w, http.StatusOK, resp)
}

// ListTransactions handles GET /budgets/{budgetID}/transactions and
// GET /budgets/{budgetID}/accounts/{accountID}/transactions.
func (h *YNABHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	since := r.URL.Query().Get("since_date")
	if since != "" {
		if _, err := time.Parse("2006-01-02", since); err != nil {
			writeYNABError(w, http.StatusBadRequest, "since_date must be YYYY-MM-DD")
			return
		}
	}

	txns, err := h.store.ListTransactions(since, chi.URLParam(r, "accountID"))
	if err != nil {
		writeYNABError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	var resp ynab.TransactionsResponse
	resp.Data.Transactions = txns
	writeJSON(w, http.StatusOK, resp)
}

// CreateTransactions handles POST /budgets/{budgetID}/transactions.
func (h *YNABHandler) CreateTransactions(w http.ResponseWriter, r *http.Request) {
	var req ynab.SaveTransactionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeYNABError(w, http.StatusBadRequest, "Failed to parse request body")
		return
	}

	// Validate required fields.
	if len(req.Transactions) == 0 {
		writeYNABError(w, http.StatusBadRequest, "transactions must not be empty")
		return
	}
	for _, tx := range req.Transactions {
		if tx.AccountID == "" || tx.Date == "" {
			writeYNABError(w, http.StatusBadRequest, "account_id and date are required")
			return
		}
	}

	result, err := h.store.SaveTransactions(req.Transactions)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeYNABError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeYNABError(w, http.StatusInternalServerError, "Failed to save transactions")
		return
	}

	writeJSON(w, http.StatusCreated, ynab.SaveTransactionsResponse{Data: result})
}

// UpdateTransaction handles PATCH /budgets/{budgetID}/transactions/{transactionID}.
// Only the flag color is patchable.
func (h *YNABHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req ynab.UpdateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeYNABError(w, http.StatusBadRequest, "Failed to parse request body")
		return
	}

	tx, err := h.store.UpdateFlag(chi.URLParam(r, "transactionID"), req.Transaction.FlagColor)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeYNABError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		writeYNABError(w, http.StatusInternalServerError, "Failed to update transaction")
		return
	}

	var resp ynab.TransactionResponse
	resp.Data.Transaction = tx
	writeJSON(w, http.StatusOK, resp)
}
