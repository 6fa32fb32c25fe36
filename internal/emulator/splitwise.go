package emulator

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/splitwise"
)

// SplitwiseHandler serves the Splitwise v3.0 endpoints.
type SplitwiseHandler struct {
	store *Store
}

// NewSplitwiseHandler creates a new SplitwiseHandler.
func NewSplitwiseHandler(s *Store) *SplitwiseHandler {
	return &SplitwiseHandler{store: s}
}

// CurrentUser handles GET /get_current_user.
func (h *SplitwiseHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, splitwise.CurrentUserResponse{User: h.store.CurrentUser()})
}

// ListExpenses handles GET /get_expenses.
func (h *SplitwiseHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit, err := intParam(query.Get("limit"))
	if err != nil {
		writeSplitwiseError(w, http.StatusBadRequest, "Invalid limit")
		return
	}
	offset, err := intParam(query.Get("offset"))
	if err != nil {
		writeSplitwiseError(w, http.StatusBadRequest, "Invalid offset")
		return
	}

	expenses, err := h.store.ListExpenses(query.Get("updated_after"), limit, offset)
	if err != nil {
		writeSplitwiseError(w, http.StatusInternalServerError, "Failed to list expenses")
		return
	}
	writeJSON(w, http.StatusOK, splitwise.ExpensesResponse{Expenses: expenses})
}

// ListFriends handles GET /get_friends.
func (h *SplitwiseHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := h.store.ListFriends()
	if err != nil {
		writeSplitwiseError(w, http.StatusInternalServerError, "Failed to list friends")
		return
	}
	writeJSON(w, http.StatusOK, splitwise.FriendsResponse{Friends: friends})
}

// CreateExpense handles POST /create_expense. Like Splitwise, validation
// failures are returned with status 200 and a non-empty errors member.
func (h *SplitwiseHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req splitwise.CreateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSplitwiseError(w, http.StatusBadRequest, "Failed to parse request body")
		return
	}

	expense, err := h.store.CreateExpense(req)
	if err != nil {
		if errors.Is(err, ErrInvalidExpense) {
			errs, _ := json.Marshal(map[string][]string{"base": {err.Error()}})
			writeJSON(w, http.StatusOK, splitwise.ExpensesResponse{
				Expenses: []splitwise.Expense{},
				Errors:   errs,
			})
			return
		}
		writeSplitwiseError(w, http.StatusInternalServerError, "Failed to create expense")
		return
	}

	writeJSON(w, http.StatusOK, splitwise.ExpensesResponse{
		Expenses: []splitwise.Expense{expense},
		Errors:   json.RawMessage(`{}`),
	})
}

func intParam(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, errors.New("invalid integer parameter")
	}
	return n, nil
}
