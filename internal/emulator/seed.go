package emulator

import (
	"fmt"
	"time"

	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/splitwise"
	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/ynab"
)

// Fixed identifiers of the demo data set.
const (
	DemoBudgetID    = "demo-budget"
	DemoAccountID   = "acct-splitwise"
	DemoCheckingID  = "acct-checking"
	DemoBrokerageID = "acct-brokerage"
	DemoSelfID      = 1001
	DemoFriendName  = "Alex"
)

// DemoUser is the Splitwise user the demo data set belongs to.
var DemoUser = splitwise.User{ID: DemoSelfID, FirstName: "Taylor", LastName: "Kim"}

// OpenDemo opens the database at dbPath for the demo user and budget and
// loads the demo data set into it.
func OpenDemo(dbPath string, now time.Time) (*Store, error) {
	st, err := Open(dbPath, DemoUser, DemoBudgetID)
	if err != nil {
		return nil, err
	}
	if err := Seed(st, now); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to seed demo data: %w", err)
	}
	return st, nil
}

// Seed loads a small data set for manual runs against the emulator. Dates
// are relative to now. Records keep fixed ids, so seeding twice replaces
// rather than duplicates them.
func Seed(st *Store, now time.Time) error {
	alex := splitwise.User{ID: 2002, FirstName: "Alex", LastName: "Lee"}
	jordan := splitwise.User{ID: 2003, FirstName: "Jordan", LastName: "Smith"}
	self := st.CurrentUser()

	for _, friend := range []splitwise.Friend{
		{ID: alex.ID, FirstName: alex.FirstName, LastName: alex.LastName},
		{ID: jordan.ID, FirstName: jordan.FirstName, LastName: jordan.LastName},
	} {
		if err := st.AddFriend(friend); err != nil {
			return err
		}
	}

	day := func(offset int) string {
		return now.UTC().AddDate(0, 0, -offset).Format(time.RFC3339)
	}

	deletedAt := day(0)
	expenses := []splitwise.Expense{
		{
			ID:          501,
			Description: "Groceries",
			Cost:        "42.50",
			Date:        day(1),
			UpdatedAt:   day(1),
			Users: []splitwise.ExpenseUser{
				{User: self, PaidShare: "42.50", OwedShare: "21.25", NetBalance: "21.25"},
				{User: alex, PaidShare: "0.00", OwedShare: "21.25", NetBalance: "-21.25"},
			},
		},
		{
			ID:          502,
			Description: "Dinner",
			Cost:        "90.00",
			Date:        day(0),
			UpdatedAt:   day(0),
			Users: []splitwise.ExpenseUser{
				{User: self, PaidShare: "0.00", OwedShare: "30.00", NetBalance: "-30.00"},
				{User: alex, PaidShare: "90.00", OwedShare: "30.00", NetBalance: "60.00"},
				{User: jordan, PaidShare: "0.00", OwedShare: "30.00", NetBalance: "-30.00"},
			},
		},
		{
			ID:          503,
			Description: "Cancelled tickets",
			Cost:        "20.00",
			Date:        day(1),
			UpdatedAt:   day(0),
			DeletedAt:   &deletedAt,
			Users: []splitwise.ExpenseUser{
				{User: self, PaidShare: "20.00", OwedShare: "10.00", NetBalance: "10.00"},
				{User: jordan, PaidShare: "0.00", OwedShare: "10.00", NetBalance: "-10.00"},
			},
		},
	}
	for _, expense := range expenses {
		if _, err := st.AddExpense(expense); err != nil {
			return err
		}
	}

	for _, account := range []ynab.Account{
		{ID: DemoAccountID, Name: "Splitwise", Type: "otherAsset", OnBudget: true},
		{ID: DemoCheckingID, Name: "Checking", Type: "checking", OnBudget: true},
		{ID: DemoBrokerageID, Name: "Brokerage", Type: "otherAsset", OnBudget: false},
	} {
		if _, err := st.AddAccount(account); err != nil {
			return err
		}
	}

	date := func(offset int) string {
		return now.UTC().AddDate(0, 0, -offset).Format("2006-01-02")
	}

	txns := []ynab.Transaction{
		{
			ID:        "txn-flagged",
			Date:      date(2),
			Amount:    -64990,
			Cleared:   ynab.ClearedCleared,
			Approved:  true,
			FlagColor: ynab.String("yellow"),
			AccountID: DemoCheckingID,
			PayeeName: ynab.String("Hardware Store"),
		},
		{
			ID:        "txn-plain",
			Date:      date(3),
			Amount:    -12000,
			Cleared:   ynab.ClearedCleared,
			Approved:  true,
			AccountID: DemoCheckingID,
			PayeeName: ynab.String("Cafe"),
		},
		{
			ID:        "txn-dividend",
			Date:      date(4),
			Amount:    15000,
			Cleared:   ynab.ClearedCleared,
			FlagColor: ynab.String("blue"),
			AccountID: DemoBrokerageID,
			PayeeName: ynab.String("Dividend"),
		},
	}
	for _, txn := range txns {
		if _, err := st.AddTransaction(txn); err != nil {
			return err
		}
	}

	return nil
}
