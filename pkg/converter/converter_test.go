package converter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/splitwise"
	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/ynab"
)

const selfID = 1

func participant(id int64, first, last, paid, net string) splitwise.ExpenseUser {
	return splitwise.ExpenseUser{
		User:       splitwise.User{ID: id, FirstName: first, LastName: last},
		PaidShare:  paid,
		NetBalance: net,
	}
}

func foreignConverter() *Converter {
	return NewConverter(Profile{Label: "Foreign"}, "acct-1")
}

func TestDescribePayee(t *testing.T) {
	tests := []struct {
		name     string
		users    []splitwise.ExpenseUser
		expected string
	}{
		{
			name: "one other participant",
			users: []splitwise.ExpenseUser{
				participant(selfID, "Sam", "Doe", "20.00", "10.00"),
				participant(2, "Alex", "Lee", "0.00", "-10.00"),
			},
			expected: "Alex Lee (Foreign)",
		},
		{
			name: "no other participant",
			users: []splitwise.ExpenseUser{
				participant(selfID, "Sam", "Doe", "20.00", "0.00"),
			},
			expected: "Foreign",
		},
		{
			name: "three other participants",
			users: []splitwise.ExpenseUser{
				participant(selfID, "Sam", "Doe", "40.00", "30.00"),
				participant(2, "Alex", "Lee", "0.00", "-10.00"),
				participant(3, "Kim", "", "0.00", "-10.00"),
				participant(4, "", "", "0.00", "-10.00"),
			},
			expected: "Multiple people (Foreign)",
		},
		{
			name: "self absent",
			users: []splitwise.ExpenseUser{
				participant(2, "Alex", "Lee", "10.00", "5.00"),
			},
			expected: "Alex Lee (Foreign)",
		},
	}

	conv := foreignConverter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := conv.Describe(splitwise.Expense{ID: 5, Description: "Dinner", Users: tt.users}, selfID)
			if desc.PayeeName != tt.expected {
				t.Errorf("PayeeName = %q, expected %q", desc.PayeeName, tt.expected)
			}
		})
	}
}

func TestDescribeMemo(t *testing.T) {
	conv := foreignConverter()

	tests := []struct {
		name     string
		users    []splitwise.ExpenseUser
		expected string
	}{
		{
			name: "single payer",
			users: []splitwise.ExpenseUser{
				participant(selfID, "Sam", "Doe", "0.00", "-10.00"),
				participant(2, "Alex", "Lee", "20.00", "10.00"),
			},
			expected: "Foreign: Dinner | paid by Alex Lee",
		},
		{
			name: "several payers keep input order",
			users: []splitwise.ExpenseUser{
				participant(selfID, "Sam", "Doe", "5.00", "-5.00"),
				participant(2, "Alex", "Lee", "15.00", "5.00"),
			},
			expected: "Foreign: Dinner | paid by Sam Doe, Alex Lee",
		},
		{
			name: "nobody paid",
			users: []splitwise.ExpenseUser{
				participant(selfID, "Sam", "Doe", "0.00", "0.00"),
			},
			expected: "Foreign: Dinner | paid by unknown",
		},
		{
			name: "payer without name falls back to id",
			users: []splitwise.ExpenseUser{
				participant(selfID, "Sam", "Doe", "0", "-1.00"),
				participant(42, "  ", "", "2.00", "1.00"),
			},
			expected: "Foreign: Dinner | paid by 42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := conv.Describe(splitwise.Expense{ID: 5, Description: "Dinner", Users: tt.users}, selfID)
			if desc.Memo != tt.expected {
				t.Errorf("Memo = %q, expected %q", desc.Memo, tt.expected)
			}
		})
	}
}

func TestDescribeMalformedShareIsExcluded(t *testing.T) {
	conv := foreignConverter()
	expense := splitwise.Expense{
		ID:          9,
		Description: "Taxi",
		Users: []splitwise.ExpenseUser{
			participant(selfID, "Sam", "Doe", "oops", "-5.00"),
			participant(2, "Alex", "Lee", "10.00", "5.00"),
		},
	}

	desc := conv.Describe(expense, selfID)

	if desc.Memo != "Foreign: Taxi | paid by Alex Lee" {
		t.Errorf("Memo = %q", desc.Memo)
	}
	if len(desc.Malformed) != 1 {
		t.Fatalf("expected 1 malformed participant, got %d", len(desc.Malformed))
	}
	if desc.Malformed[0].UserID != selfID || desc.Malformed[0].Field != "paid_share" {
		t.Errorf("unexpected malformed record: %v", desc.Malformed[0])
	}
	if !IsMalformed(desc.Malformed[0]) {
		t.Error("IsMalformed() = false")
	}
}

func TestExpected(t *testing.T) {
	conv := foreignConverter()
	expense := splitwise.Expense{
		ID:          12345,
		Description: "Groceries",
		Date:        "2024-03-09T18:22:00Z",
		Users: []splitwise.ExpenseUser{
			participant(selfID, "Sam", "Doe", "0.00", "-12.345"),
			participant(2, "Alex", "Lee", "24.69", "12.35"),
		},
	}

	expected, _, err := conv.Expected(expense, selfID)
	if err != nil {
		t.Fatalf("Expected() error: %v", err)
	}

	if expected.ID != "12345" {
		t.Errorf("ID = %q", expected.ID)
	}
	if expected.Date != "2024-03-09" {
		t.Errorf("Date = %q", expected.Date)
	}
	if expected.Amount != -12350 {
		t.Errorf("Amount = %d, expected -12350", expected.Amount)
	}
	if expected.PayeeName != "Alex Lee (Foreign)" {
		t.Errorf("PayeeName = %q", expected.PayeeName)
	}
}

func TestExpectedMalformedNetBalance(t *testing.T) {
	conv := foreignConverter()
	expense := splitwise.Expense{
		ID:    7,
		Users: []splitwise.ExpenseUser{participant(selfID, "Sam", "", "1.00", "x1")},
	}

	_, _, err := conv.Expected(expense, selfID)
	if !IsMalformed(err) {
		t.Fatalf("expected MalformedRecordError, got %v", err)
	}
}

func TestExpectedSelfNotParticipant(t *testing.T) {
	conv := foreignConverter()
	expense := splitwise.Expense{
		ID:    8,
		Users: []splitwise.ExpenseUser{participant(2, "Alex", "Lee", "1.00", "0.00")},
	}

	expected, _, err := conv.Expected(expense, selfID)
	if err != nil {
		t.Fatalf("Expected() error: %v", err)
	}
	if expected.Amount != 0 {
		t.Errorf("Amount = %d, expected 0", expected.Amount)
	}
}

func TestToTransaction(t *testing.T) {
	conv := NewConverter(Profile{Label: "Splitwise", Approved: true, ImportFlagColor: "blue"}, "acct-9")
	expense := splitwise.Expense{
		ID:          77,
		Description: "Lunch",
		Date:        "2024-01-01T00:00:00Z",
		Users: []splitwise.ExpenseUser{
			participant(selfID, "Sam", "Doe", "30.00", "15.00"),
			participant(2, "Alex", "Lee", "0.00", "-15.00"),
		},
	}

	txn, _, err := conv.ToTransaction(expense, selfID)
	if err != nil {
		t.Fatalf("ToTransaction() error: %v", err)
	}

	if txn.ImportID != "77" || txn.AccountID != "acct-9" {
		t.Errorf("unexpected ids: import=%q account=%q", txn.ImportID, txn.AccountID)
	}
	if txn.Amount != 15000 {
		t.Errorf("Amount = %d", txn.Amount)
	}
	if txn.Cleared != ynab.ClearedCleared || !txn.Approved {
		t.Errorf("cleared/approved = %q/%v", txn.Cleared, txn.Approved)
	}
	if txn.FlagColor == nil || *txn.FlagColor != "blue" {
		t.Errorf("FlagColor = %v", txn.FlagColor)
	}
	if txn.Memo != "Splitwise: Lunch | paid by Sam Doe" {
		t.Errorf("Memo = %q", txn.Memo)
	}
}

func TestToExpenseRequest(t *testing.T) {
	conv := NewConverter(DefaultProfile(), "acct")

	tests := []struct {
		name        string
		tx          ynab.Transaction
		cost        string
		selfOwed    string
		friendOwed  string
		description string
	}{
		{
			name:        "even split",
			tx:          ynab.Transaction{ID: "t1", Date: "2024-02-01", Amount: -20000, PayeeName: ynab.String("Cafe")},
			cost:        "20.00",
			selfOwed:    "10.00",
			friendOwed:  "10.00",
			description: "Cafe",
		},
		{
			name:        "odd cent goes to friend",
			tx:          ynab.Transaction{ID: "t2", Date: "2024-02-02", Amount: -10010, Memo: ynab.String("Gas")},
			cost:        "10.01",
			selfOwed:    "5.00",
			friendOwed:  "5.01",
			description: "Gas",
		},
		{
			name:        "fallback description",
			tx:          ynab.Transaction{ID: "t3", Date: "2024-02-03", Amount: -1005},
			cost:        "1.01",
			selfOwed:    "0.50",
			friendOwed:  "0.51",
			description: "YNAB transaction 2024-02-03",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := conv.ToExpenseRequest(tt.tx, selfID, 2)

			if req.Cost != tt.cost {
				t.Errorf("Cost = %s, expected %s", req.Cost, tt.cost)
			}
			if req.Description != tt.description {
				t.Errorf("Description = %q, expected %q", req.Description, tt.description)
			}
			if req.Date != tt.tx.Date+"T00:00:00Z" {
				t.Errorf("Date = %q", req.Date)
			}
			if len(req.Shares) != 2 {
				t.Fatalf("expected 2 shares, got %d", len(req.Shares))
			}
			self, friend := req.Shares[0], req.Shares[1]
			if self.UserID != selfID || self.PaidShare != tt.cost || self.OwedShare != tt.selfOwed {
				t.Errorf("self share = %+v", self)
			}
			if friend.UserID != 2 || friend.PaidShare != "0.00" || friend.OwedShare != tt.friendOwed {
				t.Errorf("friend share = %+v", friend)
			}
		})
	}
}

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	content := "label: Foreign\ncleared: Uncleared\napproved: true\nimport_flag_color: ' Purple '\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	profile, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile() error: %v", err)
	}

	expected := Profile{Label: "Foreign", Cleared: "uncleared", Approved: true, ImportFlagColor: "purple"}
	if profile != expected {
		t.Errorf("LoadProfile() = %+v, expected %+v", profile, expected)
	}
}

func TestLoadProfileDefaults(t *testing.T) {
	profile, err := LoadProfile("")
	if err != nil {
		t.Fatal(err)
	}
	if profile != DefaultProfile() {
		t.Errorf("LoadProfile(\"\") = %+v", profile)
	}
}

func TestLoadProfileInvalidCleared(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte("cleared: maybe\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadProfile(path); err == nil {
		t.Fatal("expected error for invalid cleared status")
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		user     splitwise.User
		expected string
	}{
		{splitwise.User{ID: 1, FirstName: "Alex", LastName: "Lee"}, "Alex Lee"},
		{splitwise.User{ID: 1, FirstName: " Alex ", LastName: ""}, "Alex"},
		{splitwise.User{ID: 1, FirstName: "", LastName: "Lee"}, "Lee"},
		{splitwise.User{ID: 31, FirstName: " ", LastName: ""}, "31"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := DisplayName(tt.user); got != tt.expected {
				t.Errorf("DisplayName(%+v) = %q, expected %q", tt.user, got, tt.expected)
			}
		})
	}
}
