// Package splitwise provides a Splitwise API client and types.
package splitwise

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// User is a Splitwise user as embedded in expenses and friend lists.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// ExpenseUser is one participant of an expense. Share values are decimal strings.
type ExpenseUser struct {
	User       User   `json:"user"`
	UserID     int64  `json:"user_id,omitempty"`
	NetBalance string `json:"net_balance"`
	PaidShare  string `json:"paid_share"`
	OwedShare  string `json:"owed_share"`
}

// Expense represents a shared expense.
type Expense struct {
	ID          int64         `json:"id"`
	GroupID     *int64        `json:"group_id,omitempty"`
	Description string        `json:"description"`
	Details     *string       `json:"details,omitempty"`
	Cost        string        `json:"cost"`
	Date        string        `json:"date"` // RFC 3339
	UpdatedAt   string        `json:"updated_at,omitempty"`
	DeletedAt   *string       `json:"deleted_at"`
	Users       []ExpenseUser `json:"users"`
}

// IsDeleted reports whether Splitwise marked the expense as deleted.
func (e Expense) IsDeleted() bool {
	return e.DeletedAt != nil && strings.TrimSpace(*e.DeletedAt) != ""
}

// Participant returns the participant with the given user id.
func (e Expense) Participant(userID int64) (ExpenseUser, bool) {
	for _, u := range e.Users {
		if u.User.ID == userID {
			return u, true
		}
	}
	return ExpenseUser{}, false
}

// Friend represents an entry of /get_friends.
type Friend struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// FullName joins the non-empty name parts.
func (f Friend) FullName() string {
	var parts []string
	for _, p := range []string{strings.TrimSpace(f.FirstName), strings.TrimSpace(f.LastName)} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Share is one participant line of a create_expense request.
type Share struct {
	UserID    int64
	PaidShare string
	OwedShare string
}

// CreateExpenseRequest is the body of POST /create_expense.
// Shares are encoded as flattened users__<i>__<field> keys.
type CreateExpenseRequest struct {
	Cost        string
	Description string
	Details     string
	Date        string
	GroupID     int64
	Shares      []Share
}

// MarshalJSON flattens the request into the form Splitwise expects.
func (r CreateExpenseRequest) MarshalJSON() ([]byte, error) {
	body := map[string]interface{}{
		"cost":        r.Cost,
		"description": r.Description,
		"details":     r.Details,
		"date":        r.Date,
		"group_id":    r.GroupID,
	}
	for i, s := range r.Shares {
		prefix := fmt.Sprintf("users__%d__", i)
		body[prefix+"user_id"] = s.UserID
		body[prefix+"paid_share"] = s.PaidShare
		body[prefix+"owed_share"] = s.OwedShare
	}
	return json.Marshal(body)
}

// UnmarshalJSON reads the flattened form back into a request.
func (r *CreateExpenseRequest) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	str := func(key string) string {
		v, ok := raw[key]
		if !ok {
			return ""
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s
		}
		return strings.Trim(string(v), `"`)
	}
	num := func(key string) (int64, error) {
		v := str(key)
		if v == "" {
			return 0, nil
		}
		return strconv.ParseInt(v, 10, 64)
	}

	groupID, err := num("group_id")
	if err != nil {
		return fmt.Errorf("invalid group_id: %w", err)
	}

	*r = CreateExpenseRequest{
		Cost:        str("cost"),
		Description: str("description"),
		Details:     str("details"),
		Date:        str("date"),
		GroupID:     groupID,
	}

	for i := 0; ; i++ {
		prefix := fmt.Sprintf("users__%d__", i)
		if _, ok := raw[prefix+"user_id"]; !ok {
			break
		}
		userID, err := num(prefix + "user_id")
		if err != nil {
			return fmt.Errorf("invalid %suser_id: %w", prefix, err)
		}
		r.Shares = append(r.Shares, Share{
			UserID:    userID,
			PaidShare: str(prefix + "paid_share"),
			OwedShare: str(prefix + "owed_share"),
		})
	}

	return nil
}

// CurrentUserResponse represents the response from /get_current_user.
type CurrentUserResponse struct {
	User User `json:"user"`
}

// ExpensesResponse represents the response from /get_expenses and /create_expense.
type ExpensesResponse struct {
	Expenses []Expense      `json:"expenses"`
	Errors   json.RawMessage `json:"errors,omitempty"`
}

// HasErrors reports whether the errors member carries anything.
func (r ExpensesResponse) HasErrors() bool {
	s := strings.TrimSpace(string(r.Errors))
	switch s {
	case "", "null", "{}", "[]":
		return false
	}
	return true
}

// FriendsResponse represents the response from /get_friends.
type FriendsResponse struct {
	Friends []Friend `json:"friends"`
}

// ErrorResponse represents an error body from Splitwise.
type ErrorResponse struct {
	Error  string          `json:"error,omitempty"`
	Errors json.RawMessage `json:"errors,omitempty"`
}
