package converter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/money"
	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/splitwise"
	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/ynab"
)

// Expected is the YNAB view of a Splitwise expense for one user.
type Expected struct {
	ID        string
	Date      string
	Amount    int64
	PayeeName string
	Memo      string
}

func (e Expected) String() string {
	return fmt.Sprintf("id=%s date=%s amount=%d payee=%q memo=%q", e.ID, e.Date, e.Amount, e.PayeeName, e.Memo)
}

// Description is the payee and memo derived from an expense.
type Description struct {
	PayeeName string
	Memo      string
	Payers    []string
	// Malformed lists participants whose paid share could not be parsed.
	Malformed []*MalformedRecordError
}

// Converter converts Splitwise expenses to YNAB transactions.
type Converter struct {
	profile   Profile
	accountID string
}

// NewConverter creates a new Converter for the given target account.
func NewConverter(profile Profile, accountID string) *Converter {
	if profile.Label == "" {
		profile.Label = DefaultLabel
	}
	if profile.Cleared == "" {
		profile.Cleared = ynab.ClearedCleared
	}
	return &Converter{
		profile:   profile,
		accountID: accountID,
	}
}

// Profile returns the profile in use.
func (c *Converter) Profile() Profile {
	return c.profile
}

// Describe derives the payee and memo of an expense as seen by selfID.
func (c *Converter) Describe(expense splitwise.Expense, selfID int64) Description {
	label := c.profile.Label

	var others, payers []string
	var malformed []*MalformedRecordError

	for _, participant := range expense.Users {
		name := DisplayName(participant.User)

		if participant.User.ID != selfID {
			others = append(others, name)
		}

		paid, err := money.IsPositive(participant.PaidShare)
		if err != nil {
			malformed = append(malformed, &MalformedRecordError{
				ExpenseID: expense.ID,
				UserID:    participant.User.ID,
				Field:     "paid_share",
				Value:     participant.PaidShare,
				Err:       err,
			})
			continue
		}
		if paid {
			payers = append(payers, name)
		}
	}

	var payee string
	switch {
	case len(others) == 1:
		payee = fmt.Sprintf("%s (%s)", others[0], label)
	case len(others) > 1:
		payee = fmt.Sprintf("Multiple people (%s)", label)
	default:
		payee = label
	}

	paidBy := "unknown"
	if len(payers) > 0 {
		paidBy = strings.Join(payers, ", ")
	}

	return Description{
		PayeeName: payee,
		Memo:      fmt.Sprintf("%s: %s | paid by %s", label, expense.Description, paidBy),
		Payers:    payers,
		Malformed: malformed,
	}
}

// Expected maps an expense to the record YNAB should hold for selfID.
// The amount is selfID's net balance; it is zero when selfID is not a participant.
func (c *Converter) Expected(expense splitwise.Expense, selfID int64) (Expected, Description, error) {
	desc := c.Describe(expense, selfID)

	var amount int64
	if self, ok := expense.Participant(selfID); ok {
		m, err := money.ToMilliunits(self.NetBalance)
		if err != nil {
			return Expected{}, desc, &MalformedRecordError{
				ExpenseID: expense.ID,
				UserID:    selfID,
				Field:     "net_balance",
				Value:     self.NetBalance,
				Err:       err,
			}
		}
		amount = m
	}

	return Expected{
		ID:        ImportID(expense),
		Date:      DateOnly(expense.Date),
		Amount:    amount,
		PayeeName: desc.PayeeName,
		Memo:      desc.Memo,
	}, desc, nil
}

// ToTransaction builds the YNAB transaction to import for an expense.
func (c *Converter) ToTransaction(expense splitwise.Expense, selfID int64) (ynab.NewTransaction, Description, error) {
	expected, desc, err := c.Expected(expense, selfID)
	if err != nil {
		return ynab.NewTransaction{}, desc, err
	}

	txn := ynab.NewTransaction{
		AccountID: c.accountID,
		Date:      expected.Date,
		Amount:    expected.Amount,
		PayeeName: expected.PayeeName,
		Memo:      expected.Memo,
		Cleared:   c.profile.Cleared,
		Approved:  c.profile.Approved,
		ImportID:  expected.ID,
	}
	if c.profile.ImportFlagColor != "" {
		txn.FlagColor = ynab.String(c.profile.ImportFlagColor)
	}

	return txn, desc, nil
}

// ToExpenseRequest builds a Splitwise expense splitting an outflow 50/50
// between selfID, who paid it, and friendID.
func (c *Converter) ToExpenseRequest(tx ynab.Transaction, selfID, friendID int64) splitwise.CreateExpenseRequest {
	cost := money.AbsFromMilliunits(tx.Amount)
	friendOwed, selfOwed := money.SplitHalf(cost)

	description := tx.PayeeText()
	if description == "" {
		description = tx.MemoText()
	}
	if description == "" {
		description = fmt.Sprintf("YNAB transaction %s", tx.Date)
	}

	return splitwise.CreateExpenseRequest{
		Cost:        money.Format(cost),
		Description: description,
		Details:     fmt.Sprintf("Created by splitwise2ynab from YNAB transaction %s", tx.ID),
		Date:        tx.Date + "T00:00:00Z",
		GroupID:     0,
		Shares: []splitwise.Share{
			{UserID: selfID, PaidShare: money.Format(cost), OwedShare: money.Format(selfOwed)},
			{UserID: friendID, PaidShare: "0.00", OwedShare: money.Format(friendOwed)},
		},
	}
}

// DisplayName returns "<first> <last>" or the user id when both are blank.
func DisplayName(u splitwise.User) string {
	var parts []string
	for _, p := range []string{strings.TrimSpace(u.FirstName), strings.TrimSpace(u.LastName)} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return strconv.FormatInt(u.ID, 10)
	}
	return strings.Join(parts, " ")
}

// ImportID is the idempotency key stored on YNAB for an expense.
func ImportID(expense splitwise.Expense) string {
	return strconv.FormatInt(expense.ID, 10)
}

// DateOnly truncates an RFC 3339 timestamp to YYYY-MM-DD.
func DateOnly(date string) string {
	if len(date) > 10 {
		return date[:10]
	}
	return date
}
