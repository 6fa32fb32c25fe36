package syncer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/internal/emulator"
	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/audit"
	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/converter"
	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/splitwise"
	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/ynab"
)

const (
	selfID     = 10
	friendID   = 20
	budgetID   = "budget-1"
	accountID  = "acct-splitwise"
	checkingID = "acct-checking"
)

var (
	testNow   = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	self      = splitwise.User{ID: selfID, FirstName: "Sam", LastName: "Park"}
	alex      = splitwise.User{ID: friendID, FirstName: "Alex", LastName: "Lee"}
	discarded = slog.New(slog.NewTextHandler(io.Discard, nil))
)

type testEnv struct {
	t         *testing.T
	store     *emulator.Store
	splitwise *splitwise.Client
	ynab      *ynab.Client
	conv      *converter.Converter
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	st, err := emulator.Open(filepath.Join(t.TempDir(), "emulator.db"), self, budgetID)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	server := httptest.NewServer(emulator.NewRouter(st, emulator.RouterConfig{
		SplitwiseToken: "sw",
		YNABToken:      "ynab",
	}))
	t.Cleanup(server.Close)

	env := &testEnv{
		t:     t,
		store: st,
		splitwise: splitwise.NewClient(splitwise.ClientConfig{
			APIURL:      server.URL + emulator.SplitwiseBasePath,
			AccessToken: "sw",
		}),
		ynab: ynab.NewClient(ynab.ClientConfig{
			APIURL:      server.URL + emulator.YNABBasePath,
			AccessToken: "ynab",
			BudgetID:    budgetID,
		}),
		conv: converter.NewConverter(converter.DefaultProfile(), accountID),
	}
	env.addFriend(splitwise.Friend{ID: alex.ID, FirstName: alex.FirstName, LastName: alex.LastName})
	env.addAccount(ynab.Account{ID: accountID, Name: "Splitwise", OnBudget: true})
	env.addAccount(ynab.Account{ID: checkingID, Name: "Checking", OnBudget: true})
	return env
}

func (e *testEnv) addFriend(friend splitwise.Friend) {
	e.t.Helper()
	require.NoError(e.t, e.store.AddFriend(friend))
}

func (e *testEnv) addAccount(account ynab.Account) {
	e.t.Helper()
	_, err := e.store.AddAccount(account)
	require.NoError(e.t, err)
}

func (e *testEnv) addExpense(expense splitwise.Expense) {
	e.t.Helper()
	_, err := e.store.AddExpense(expense)
	require.NoError(e.t, err)
}

func (e *testEnv) addTransaction(tx ynab.Transaction) {
	e.t.Helper()
	_, err := e.store.AddTransaction(tx)
	require.NoError(e.t, err)
}

func (e *testEnv) expenses() []splitwise.Expense {
	e.t.Helper()
	expenses, err := e.store.Expenses()
	require.NoError(e.t, err)
	return expenses
}

func (e *testEnv) transactions(accountID string) []ynab.Transaction {
	e.t.Helper()
	txns, err := e.store.ListTransactions("", accountID)
	require.NoError(e.t, err)
	return txns
}

func (e *testEnv) transaction(id string) ynab.Transaction {
	e.t.Helper()
	tx, err := e.store.GetTransaction(id)
	require.NoError(e.t, err)
	return tx
}

// syncer builds a Syncer with working defaults; each option func then
// overrides what the test cares about, zero values included.
func (e *testEnv) syncer(options ...func(*Options)) *Syncer {
	return e.syncerWith(e.splitwise, e.ynab, options...)
}

func (e *testEnv) syncerWith(expenses ExpenseService, budget BudgetService, options ...func(*Options)) *Syncer {
	opts := Options{
		AccountID:       accountID,
		FlagColor:       "yellow",
		CounterpartName: "alex",
		SyncDays:        2,
		MaxRecords:      100,
		LookbackDays:    7,
		Now:             func() time.Time { return testNow },
	}
	for _, option := range options {
		option(&opts)
	}
	return New(expenses, budget, e.conv, opts, discarded)
}

func dryRun(o *Options) { o.DryRun = true }

func sharedExpense(id int64, description, selfNet string) splitwise.Expense {
	return splitwise.Expense{
		ID:          id,
		Description: description,
		Cost:        "20.00",
		Date:        "2024-03-09T18:30:00Z",
		UpdatedAt:   "2024-03-09T18:30:00Z",
		Users: []splitwise.ExpenseUser{
			{User: self, PaidShare: "20.00", NetBalance: selfNet},
			{User: alex, PaidShare: "0.00", NetBalance: "-" + selfNet},
		},
	}
}

func TestForwardImportIsIdempotent(t *testing.T) {
	env := setup(t)
	env.addExpense(sharedExpense(501, "Groceries", "10.00"))
	env.addExpense(sharedExpense(502, "Taxi", "7.25"))
	ctx := context.Background()

	first, err := env.syncer().Forward(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-08", first.UpdatedAfter)
	assert.Equal(t, 2, first.Fetched)
	assert.Equal(t, 2, first.Created)

	txns := env.transactions(accountID)
	require.Len(t, txns, 2)
	assert.Equal(t, int64(10000), txns[0].Amount)
	assert.Equal(t, "Alex Lee (Splitwise)", txns[0].PayeeText())
	assert.Equal(t, "Splitwise: Groceries | paid by Sam Park", txns[0].MemoText())
	assert.Equal(t, "2024-03-09", txns[0].Date)
	assert.Equal(t, "501", txns[0].ImportKey())
	assert.Equal(t, ynab.ClearedCleared, txns[0].Cleared)
	assert.False(t, txns[0].Approved)

	second, err := env.syncer().Forward(ctx)
	require.NoError(t, err)
	assert.Zero(t, second.Created)
	assert.ElementsMatch(t, []string{"501", "502"}, second.Duplicates)
	assert.Len(t, env.transactions(accountID), 2)

	expenses, err := env.splitwise.FetchAllExpenses(ctx, "", 1000)
	require.NoError(t, err)
	imported, err := env.ynab.ListAccountTransactions(ctx, accountID, "")
	require.NoError(t, err)

	result := audit.Compare(expenses, imported, selfID, env.conv)
	assert.Empty(t, result.Missing)
	assert.Empty(t, result.Different)
}

func TestForwardSkipsDeletedAndMalformed(t *testing.T) {
	env := setup(t)

	deleted := sharedExpense(601, "Cancelled", "5.00")
	deletedAt := "2024-03-09T20:00:00Z"
	deleted.DeletedAt = &deletedAt
	env.addExpense(deleted)

	env.addExpense(sharedExpense(602, "Broken", "abc"))
	env.addExpense(sharedExpense(603, "Lunch", "3.00"))

	result, err := env.syncer().Forward(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Created)

	txns := env.transactions(accountID)
	require.Len(t, txns, 1)
	assert.Equal(t, "603", txns[0].ImportKey())
}

func TestForwardDryRun(t *testing.T) {
	env := setup(t)
	env.addExpense(sharedExpense(701, "Groceries", "10.00"))

	result, err := env.syncer(dryRun).Forward(context.Background())
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Len(t, result.Transactions, 1)
	assert.Zero(t, result.Created)
	assert.Empty(t, env.transactions(""))
}

func TestForwardOutsideWindow(t *testing.T) {
	env := setup(t)
	old := sharedExpense(801, "Old", "10.00")
	old.UpdatedAt = "2024-03-01T00:00:00Z"
	env.addExpense(old)

	result, err := env.syncer().Forward(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Fetched)
	assert.Empty(t, result.Transactions)
}

func TestForwardUnavailableAccount(t *testing.T) {
	env := setup(t)
	env.addAccount(ynab.Account{ID: "closed", Name: "Old card", OnBudget: true, Closed: true})
	env.addExpense(sharedExpense(901, "Groceries", "10.00"))

	for _, id := range []string{"closed", "missing"} {
		_, err := env.syncer(func(o *Options) { o.AccountID = id }).Forward(context.Background())
		assert.ErrorIs(t, err, ErrAccountUnavailable, "account %s", id)
	}
	assert.Empty(t, env.transactions(""))
}

func flagged(id, account, date string, amount int64) ynab.Transaction {
	return ynab.Transaction{
		ID:        id,
		Date:      date,
		Amount:    amount,
		AccountID: account,
		FlagColor: ynab.String("yellow"),
		PayeeName: ynab.String("Hardware Store"),
		Cleared:   ynab.ClearedCleared,
	}
}

func TestReverseCreatesExpenseAndClearsFlag(t *testing.T) {
	env := setup(t)
	env.addTransaction(flagged("out", checkingID, "2024-03-08", -12345))

	result, err := env.syncer().Reverse(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "2024-03-03", result.Cutoff)
	assert.Equal(t, int64(friendID), result.Friend.ID)
	require.Len(t, result.Selected, 1)
	assert.Equal(t, 1, result.Created)
	assert.Zero(t, result.Failed)

	expenses := env.expenses()
	require.Len(t, expenses, 1)
	assert.Equal(t, "12.35", expenses[0].Cost)
	assert.Equal(t, "Hardware Store", expenses[0].Description)
	assert.Equal(t, "2024-03-08T00:00:00Z", expenses[0].Date)

	friendShare, ok := expenses[0].Participant(friendID)
	require.True(t, ok)
	assert.Equal(t, "6.18", friendShare.OwedShare)
	selfShare, ok := expenses[0].Participant(selfID)
	require.True(t, ok)
	assert.Equal(t, "6.17", selfShare.OwedShare)
	assert.Equal(t, "12.35", selfShare.PaidShare)

	tx := env.transaction("out")
	assert.Nil(t, tx.FlagColor)

	again, err := env.syncer().Reverse(context.Background())
	require.NoError(t, err)
	assert.Empty(t, again.Selected)
	assert.Len(t, env.expenses(), 1)
}

func TestReverseDryRun(t *testing.T) {
	env := setup(t)
	env.addTransaction(flagged("out", checkingID, "2024-03-08", -5000))

	result, err := env.syncer(dryRun).Reverse(context.Background())
	require.NoError(t, err)

	assert.Len(t, result.Selected, 1)
	assert.Zero(t, result.Created)
	assert.Empty(t, env.expenses())

	tx := env.transaction("out")
	assert.Equal(t, "yellow", tx.Flag())
}

type failingFlags struct {
	*ynab.Client
}

func (failingFlags) ClearFlag(context.Context, string) error {
	return errors.New("flag update rejected")
}

func TestReverseFlagClearFailureIsNotCounted(t *testing.T) {
	env := setup(t)
	env.addTransaction(flagged("out", checkingID, "2024-03-08", -5000))

	s := env.syncerWith(env.splitwise, failingFlags{env.ynab})

	result, err := s.Reverse(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Created)
	assert.Equal(t, 1, result.Failed)
	assert.Len(t, env.expenses(), 1)
}

type failingExpenses struct {
	*splitwise.Client
	description string
}

func (f failingExpenses) CreateExpense(ctx context.Context, req splitwise.CreateExpenseRequest) (*splitwise.Expense, error) {
	if req.Description == f.description {
		return nil, &splitwise.APIError{Status: 400, Body: "Cost must be positive"}
	}
	return f.Client.CreateExpense(ctx, req)
}

func TestReverseContinuesAfterCreateFailure(t *testing.T) {
	env := setup(t)
	rejected := flagged("rejected", checkingID, "2024-03-07", -4000)
	rejected.PayeeName = ynab.String("Rejected Shop")
	env.addTransaction(rejected)
	env.addTransaction(flagged("accepted", checkingID, "2024-03-08", -5000))

	s := env.syncerWith(failingExpenses{Client: env.splitwise, description: "Rejected Shop"}, env.ynab)

	result, err := s.Reverse(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Selected, 2)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Failed)

	expenses := env.expenses()
	require.Len(t, expenses, 1)
	assert.Equal(t, "Hardware Store", expenses[0].Description)

	tx := env.transaction("rejected")
	assert.Equal(t, "yellow", tx.Flag())

	tx = env.transaction("accepted")
	assert.Nil(t, tx.FlagColor)
}

func TestReverseBlankFlagColorAborts(t *testing.T) {
	env := setup(t)
	unflagged := flagged("plain", checkingID, "2024-03-08", -50000)
	unflagged.FlagColor = nil
	env.addTransaction(unflagged)

	for _, color := range []string{"", "   "} {
		result, err := env.syncer(func(o *Options) { o.FlagColor = color }).Reverse(context.Background())
		assert.ErrorIs(t, err, ErrNoFlagColor)
		assert.Empty(t, result.Selected)
	}
	assert.Empty(t, env.expenses())
}

func TestReverseLookbackZeroSelectsToday(t *testing.T) {
	env := setup(t)
	env.addTransaction(flagged("today", checkingID, "2024-03-10", -1000))
	env.addTransaction(flagged("yesterday", checkingID, "2024-03-09", -1000))

	result, err := env.syncer(func(o *Options) { o.LookbackDays = 0 }).Reverse(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "2024-03-10", result.Cutoff)
	require.Len(t, result.Selected, 1)
	assert.Equal(t, "today", result.Selected[0].ID)
	assert.Equal(t, 1, result.Created)
}

type failingBatch struct {
	*ynab.Client
}

func (failingBatch) CreateTransactions(context.Context, []ynab.NewTransaction) (*ynab.SaveResult, error) {
	return nil, &ynab.APIError{Status: 500, Body: "internal_server_error - Something went wrong"}
}

func TestForwardBatchFailure(t *testing.T) {
	env := setup(t)
	env.addExpense(sharedExpense(501, "Groceries", "10.00"))
	env.addExpense(sharedExpense(502, "Taxi", "7.25"))

	result, err := env.syncerWith(env.splitwise, failingBatch{env.ynab}).Forward(context.Background())

	var apiErr *ynab.APIError
	require.True(t, errors.As(err, &apiErr), "expected *ynab.APIError, got %v", err)
	assert.Equal(t, 500, apiErr.Status)
	assert.Len(t, result.Transactions, 2)
	assert.Zero(t, result.Created)
	assert.Empty(t, result.Duplicates)
	assert.Empty(t, env.transactions(accountID))
}

func TestReverseAbortsButForwardRuns(t *testing.T) {
	env := setup(t)
	env.addFriend(splitwise.Friend{ID: 30, FirstName: "Alex", LastName: "Kim"})
	env.addTransaction(flagged("out", checkingID, "2024-03-08", -5000))
	env.addExpense(sharedExpense(501, "Groceries", "10.00"))

	report, err := env.syncer().Run(context.Background(), DirectionBoth)
	require.NoError(t, err)

	var ambiguous *AmbiguousMatchError
	require.True(t, errors.As(report.ReverseErr, &ambiguous))
	assert.Len(t, ambiguous.Candidates, 2)
	assert.Len(t, env.expenses(), 1)

	require.NotNil(t, report.Forward)
	assert.Equal(t, 1, report.Forward.Created)
}

func TestRunDirections(t *testing.T) {
	env := setup(t)
	env.addExpense(sharedExpense(501, "Groceries", "10.00"))
	env.addTransaction(flagged("out", checkingID, "2024-03-08", -5000))

	report, err := env.syncer().Run(context.Background(), DirectionForward)
	require.NoError(t, err)
	assert.Nil(t, report.Reverse)
	require.NotNil(t, report.Forward)
	assert.Equal(t, 1, report.Forward.Created)
	assert.Len(t, env.expenses(), 1)

	report, err = env.syncer().Run(context.Background(), DirectionReverse)
	require.NoError(t, err)
	assert.Nil(t, report.Forward)
	require.NotNil(t, report.Reverse)
	assert.Equal(t, 1, report.Reverse.Created)
	assert.Len(t, env.expenses(), 2)
}

func TestReverseNegativeLookback(t *testing.T) {
	env := setup(t)

	_, err := env.syncer(func(o *Options) { o.LookbackDays = -1 }).Reverse(context.Background())
	assert.ErrorIs(t, err, ErrInvalidLookback)
}

func TestResolveFriend(t *testing.T) {
	friends := []splitwise.Friend{
		{ID: 1, FirstName: "Alex", LastName: "Lee"},
		{ID: 2, FirstName: "Jordan", LastName: "Smith"},
		{ID: 3, FirstName: "Jordan", LastName: "Park"},
	}

	tests := []struct {
		name       string
		input      string
		expectedID int64
		ambiguous  int
		noName     bool
	}{
		{name: "first name ignoring case", input: "ALEX", expectedID: 1},
		{name: "full name", input: "  jordan smith ", expectedID: 2},
		{name: "multiple matches", input: "Jordan", ambiguous: 2},
		{name: "no match", input: "Casey", ambiguous: 0},
		{name: "blank", input: "   ", noName: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			friend, err := ResolveFriend(friends, tt.input)

			switch {
			case tt.noName:
				assert.ErrorIs(t, err, ErrNoCounterpart)
			case tt.expectedID != 0:
				require.NoError(t, err)
				assert.Equal(t, tt.expectedID, friend.ID)
			default:
				var ambiguous *AmbiguousMatchError
				require.True(t, errors.As(err, &ambiguous), "expected AmbiguousMatchError, got %v", err)
				assert.Len(t, ambiguous.Candidates, tt.ambiguous)
			}
		})
	}
}

func TestSelectFlagged(t *testing.T) {
	accounts := []ynab.Account{
		{ID: "budget", OnBudget: true},
		{ID: "tracking", OnBudget: false},
		{ID: "closed", OnBudget: true, Closed: true},
	}

	transfer := flagged("transfer", "budget", "2024-03-08", -1000)
	transfer.TransferAccountID = ynab.String("tracking")
	split := flagged("split", "budget", "2024-03-08", -1000)
	split.ParentTransactionID = ynab.String("parent")
	deleted := flagged("deleted", "budget", "2024-03-08", -1000)
	deleted.Deleted = true
	otherColor := flagged("red", "budget", "2024-03-08", -1000)
	otherColor.FlagColor = ynab.String("red")
	upper := flagged("upper", "budget", "2024-03-08", -1000)
	upper.FlagColor = ynab.String("Yellow")

	txns := []ynab.Transaction{
		flagged("match", "budget", "2024-03-03", -1000),
		upper,
		flagged("inflow", "budget", "2024-03-08", 1000),
		flagged("zero", "budget", "2024-03-08", 0),
		flagged("old", "budget", "2024-03-02", -1000),
		flagged("baddate", "budget", "03/08/2024", -1000),
		flagged("offbudget", "tracking", "2024-03-08", -1000),
		flagged("closedacct", "closed", "2024-03-08", -1000),
		transfer, split, deleted, otherColor,
	}

	cutoff := time.Date(2024, 3, 3, 18, 0, 0, 0, time.UTC)
	selected := SelectFlagged(accounts, txns, "yellow", cutoff)
	assert.Empty(t, SelectFlagged(accounts, txns, " ", cutoff))

	var ids []string
	for _, tx := range selected {
		ids = append(ids, tx.ID)
	}
	assert.Equal(t, []string{"match", "upper"}, ids)
}

func TestParseDirection(t *testing.T) {
	for input, expected := range map[string]Direction{
		"":        DirectionBoth,
		"both":    DirectionBoth,
		"forward": DirectionForward,
		"reverse": DirectionReverse,
	} {
		got, err := ParseDirection(input)
		require.NoError(t, err)
		assert.Equal(t, expected, got)
	}

	_, err := ParseDirection("sideways")
	assert.Error(t, err)
}
