package splitwise

import (
	"encoding/json"
	"testing"
)

func TestCreateExpenseRequestMarshalJSON(t *testing.T) {
	req := CreateExpenseRequest{
		Cost:        "12.35",
		Description: "Hardware Store",
		Date:        "2024-03-08T00:00:00Z",
		Shares: []Share{
			{UserID: 10, PaidShare: "12.35", OwedShare: "6.17"},
			{UserID: 20, PaidShare: "0.00", OwedShare: "6.18"},
		},
	}

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatal(err)
	}

	expected := map[string]interface{}{
		"cost":                 "12.35",
		"group_id":             float64(0),
		"users__0__user_id":    float64(10),
		"users__0__paid_share": "12.35",
		"users__1__user_id":    float64(20),
		"users__1__owed_share": "6.18",
		"users__1__paid_share": "0.00",
		"users__0__owed_share": "6.17",
		"description":          "Hardware Store",
	}
	for key, want := range expected {
		if body[key] != want {
			t.Errorf("%s = %v, expected %v", key, body[key], want)
		}
	}
	if _, ok := body["users__2__user_id"]; ok {
		t.Error("unexpected third participant")
	}
}

func TestHasErrors(t *testing.T) {
	tests := []struct {
		raw      string
		expected bool
	}{
		{"", false},
		{"null", false},
		{"{}", false},
		{" [] ", false},
		{`{"base":["Cost must be positive"]}`, true},
	}

	for _, tt := range tests {
		resp := ExpensesResponse{Errors: json.RawMessage(tt.raw)}
		if got := resp.HasErrors(); got != tt.expected {
			t.Errorf("HasErrors(%q) = %v, expected %v", tt.raw, got, tt.expected)
		}
	}
}

func TestExpenseHelpers(t *testing.T) {
	blank := "  "
	deleted := "2024-03-01T00:00:00Z"

	if (Expense{DeletedAt: &blank}).IsDeleted() {
		t.Error("blank deleted_at should not mark the expense deleted")
	}
	if !(Expense{DeletedAt: &deleted}).IsDeleted() {
		t.Error("expected expense to be deleted")
	}

	if got := (Friend{FirstName: " Alex ", LastName: ""}).FullName(); got != "Alex" {
		t.Errorf("FullName() = %q", got)
	}
}
