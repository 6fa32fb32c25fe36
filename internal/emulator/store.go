// Package emulator serves a local stand-in for the Splitwise and YNAB
// endpoints the sync tool talks to, backed by a bbolt database.
package emulator

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	bolt "go.etcd.io/bbolt"

	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/money"
	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/splitwise"
	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/ynab"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidExpense is returned when create_expense input is rejected.
	ErrInvalidExpense = errors.New("invalid expense")
)

// Bucket names.
const (
	BucketFriends      = "friends"
	BucketExpenses     = "expenses"
	BucketAccounts     = "accounts"
	BucketTransactions = "transactions"
)

// defaultExpenseLimit mirrors Splitwise's default page size.
const defaultExpenseLimit = 20

// Store holds the state of both emulated services in a bbolt database.
// Expenses and friends are keyed by their numeric id, accounts by id, and
// transactions by insertion sequence so listings keep creation order.
type Store struct {
	db       *bolt.DB
	self     splitwise.User
	budgetID string
	now      func() time.Time
}

// Open opens (or creates) the database at dbPath for the given Splitwise
// user and YNAB budget, and initializes buckets.
func Open(dbPath string, self splitwise.User, budgetID string) (*Store, error) {
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		buckets := []string{BucketFriends, BucketExpenses, BucketAccounts, BucketTransactions}
		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, self: self, budgetID: budgetID, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// BudgetID returns the id of the emulated YNAB budget.
func (s *Store) BudgetID() string {
	return s.budgetID
}

// CurrentUser returns the authenticated Splitwise user.
func (s *Store) CurrentUser() splitwise.User {
	return s.self
}

// AddFriend registers a Splitwise friend, replacing one with the same id.
func (s *Store) AddFriend(friend splitwise.Friend) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket([]byte(BucketFriends)), itob(friend.ID), friend)
	})
}

// ListFriends returns all friends ordered by id.
func (s *Store) ListFriends() ([]splitwise.Friend, error) {
	friends := []splitwise.Friend{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BucketFriends)).ForEach(func(_, v []byte) error {
			var f splitwise.Friend
			if err := json.Unmarshal(v, &f); err != nil {
				return err
			}
			friends = append(friends, f)
			return nil
		})
	})
	return friends, err
}

// AddExpense stores an expense as is, assigning an id and updated_at when unset.
func (s *Store) AddExpense(expense splitwise.Expense) (splitwise.Expense, error) {
	if expense.UpdatedAt == "" {
		expense.UpdatedAt = s.now().UTC().Format(time.RFC3339)
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketExpenses))
		if expense.ID == 0 {
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			expense.ID = int64(seq)
		} else if uint64(expense.ID) > b.Sequence() {
			if err := b.SetSequence(uint64(expense.ID)); err != nil {
				return err
			}
		}
		return putJSON(b, itob(expense.ID), expense)
	})
	if err != nil {
		return splitwise.Expense{}, fmt.Errorf("failed to save expense: %w", err)
	}
	return expense, nil
}

// Expenses returns all stored expenses ordered by id.
func (s *Store) Expenses() ([]splitwise.Expense, error) {
	return s.filterExpenses(func(splitwise.Expense) bool { return true })
}

// ListExpenses returns a page of expenses updated at or after updatedAfter.
// Timestamps are compared as ISO 8601 strings.
func (s *Store) ListExpenses(updatedAfter string, limit, offset int) ([]splitwise.Expense, error) {
	if limit <= 0 {
		limit = defaultExpenseLimit
	}

	matched, err := s.filterExpenses(func(e splitwise.Expense) bool {
		return updatedAfter == "" || e.UpdatedAt >= updatedAfter
	})
	if err != nil {
		return nil, err
	}

	if offset >= len(matched) {
		return []splitwise.Expense{}, nil
	}
	end := min(offset+limit, len(matched))
	return matched[offset:end], nil
}

func (s *Store) filterExpenses(keep func(splitwise.Expense) bool) ([]splitwise.Expense, error) {
	expenses := []splitwise.Expense{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BucketExpenses)).ForEach(func(_, v []byte) error {
			var e splitwise.Expense
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			if keep(e) {
				expenses = append(expenses, e)
			}
			return nil
		})
	})
	return expenses, err
}

// CreateExpense validates and stores an expense built from a create_expense request.
func (s *Store) CreateExpense(req splitwise.CreateExpenseRequest) (splitwise.Expense, error) {
	cost, err := money.Parse(req.Cost)
	if err != nil || !cost.IsPositive() {
		return splitwise.Expense{}, fmt.Errorf("%w: cost must be a positive amount", ErrInvalidExpense)
	}
	if strings.TrimSpace(req.Description) == "" {
		return splitwise.Expense{}, fmt.Errorf("%w: description is required", ErrInvalidExpense)
	}
	if len(req.Shares) == 0 {
		return splitwise.Expense{}, fmt.Errorf("%w: at least one share is required", ErrInvalidExpense)
	}

	var expense splitwise.Expense
	err = s.db.Update(func(tx *bolt.Tx) error {
		friends := tx.Bucket([]byte(BucketFriends))

		paidTotal, owedTotal := decimal.Zero, decimal.Zero
		users := make([]splitwise.ExpenseUser, 0, len(req.Shares))
		for _, share := range req.Shares {
			user, ok, err := s.lookupUser(friends, share.UserID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: unknown user %d", ErrInvalidExpense, share.UserID)
			}
			paid, err := money.Parse(share.PaidShare)
			if err != nil {
				return fmt.Errorf("%w: paid share of user %d", ErrInvalidExpense, share.UserID)
			}
			owed, err := money.Parse(share.OwedShare)
			if err != nil {
				return fmt.Errorf("%w: owed share of user %d", ErrInvalidExpense, share.UserID)
			}
			paidTotal = paidTotal.Add(paid)
			owedTotal = owedTotal.Add(owed)

			users = append(users, splitwise.ExpenseUser{
				User:       user,
				UserID:     user.ID,
				PaidShare:  money.Format(paid),
				OwedShare:  money.Format(owed),
				NetBalance: money.Format(paid.Sub(owed)),
			})
		}

		if !paidTotal.Equal(cost) || !owedTotal.Equal(cost) {
			return fmt.Errorf("%w: shares do not add up to the cost", ErrInvalidExpense)
		}

		b := tx.Bucket([]byte(BucketExpenses))
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}

		now := s.now().UTC().Format(time.RFC3339)
		expense = splitwise.Expense{
			ID:          int64(seq),
			Description: req.Description,
			Cost:        money.Format(cost),
			Date:        req.Date,
			UpdatedAt:   now,
			Users:       users,
		}
		if expense.Date == "" {
			expense.Date = now
		}
		if req.Details != "" {
			details := req.Details
			expense.Details = &details
		}
		if req.GroupID != 0 {
			groupID := req.GroupID
			expense.GroupID = &groupID
		}

		return putJSON(b, itob(expense.ID), expense)
	})
	if err != nil {
		return splitwise.Expense{}, err
	}
	return expense, nil
}

func (s *Store) lookupUser(friends *bolt.Bucket, id int64) (splitwise.User, bool, error) {
	if id == s.self.ID {
		return s.self, true, nil
	}
	data := friends.Get(itob(id))
	if data == nil {
		return splitwise.User{}, false, nil
	}
	var f splitwise.Friend
	if err := json.Unmarshal(data, &f); err != nil {
		return splitwise.User{}, false, err
	}
	return splitwise.User{ID: f.ID, FirstName: f.FirstName, LastName: f.LastName}, true, nil
}

// AddAccount registers a YNAB account, assigning an id when unset.
func (s *Store) AddAccount(account ynab.Account) (ynab.Account, error) {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket([]byte(BucketAccounts)), []byte(account.ID), account)
	})
	if err != nil {
		return ynab.Account{}, fmt.Errorf("failed to save account: %w", err)
	}
	return account, nil
}

// ListAccounts returns all accounts ordered by id.
func (s *Store) ListAccounts() ([]ynab.Account, error) {
	accounts := []ynab.Account{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BucketAccounts)).ForEach(func(_, v []byte) error {
			var a ynab.Account
			if err := json.Unmarshal(v, &a); err != nil {
				return err
			}
			accounts = append(accounts, a)
			return nil
		})
	})
	return accounts, err
}

// AddTransaction stores a transaction as is, assigning an id when unset.
// A transaction with an existing id replaces the stored one.
func (s *Store) AddTransaction(txn ynab.Transaction) (ynab.Transaction, error) {
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketTransactions))
		key, _, err := findTransaction(b, txn.ID)
		if err != nil {
			return err
		}
		if key == nil {
			if key, err = nextKey(b); err != nil {
				return err
			}
		}
		return putJSON(b, key, txn)
	})
	if err != nil {
		return ynab.Transaction{}, fmt.Errorf("failed to save transaction: %w", err)
	}
	return txn, nil
}

// ListTransactions returns transactions dated on or after sinceDate,
// limited to one account when accountID is set.
func (s *Store) ListTransactions(sinceDate, accountID string) ([]ynab.Transaction, error) {
	result := []ynab.Transaction{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return eachTransaction(tx.Bucket([]byte(BucketTransactions)), func(_ []byte, t ynab.Transaction) error {
			if sinceDate != "" && t.Date < sinceDate {
				return nil
			}
			if accountID != "" && t.AccountID != accountID {
				return nil
			}
			result = append(result, t)
			return nil
		})
	})
	return result, err
}

// GetTransaction returns a transaction by id.
func (s *Store) GetTransaction(id string) (ynab.Transaction, error) {
	var found ynab.Transaction
	err := s.db.View(func(tx *bolt.Tx) error {
		key, t, err := findTransaction(tx.Bucket([]byte(BucketTransactions)), id)
		if err != nil {
			return err
		}
		if key == nil {
			return ErrNotFound
		}
		found = t
		return nil
	})
	return found, err
}

// SaveTransactions creates a batch of transactions. A transaction whose
// import id already exists on the same account is skipped and reported as
// a duplicate. An unknown account rejects the whole batch.
func (s *Store) SaveTransactions(batch []ynab.NewTransaction) (ynab.SaveResult, error) {
	result := ynab.SaveResult{
		TransactionIDs:     []string{},
		DuplicateImportIDs: []string{},
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		accounts := tx.Bucket([]byte(BucketAccounts))
		for _, n := range batch {
			ok, err := openAccount(accounts, n.AccountID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: account %s", ErrNotFound, n.AccountID)
			}
		}

		b := tx.Bucket([]byte(BucketTransactions))

		// Import ids already present, per account.
		imported := map[string]map[string]bool{}
		err := eachTransaction(b, func(_ []byte, t ynab.Transaction) error {
			if t.Deleted || t.ImportKey() == "" {
				return nil
			}
			if imported[t.AccountID] == nil {
				imported[t.AccountID] = map[string]bool{}
			}
			imported[t.AccountID][t.ImportKey()] = true
			return nil
		})
		if err != nil {
			return err
		}

		for _, n := range batch {
			if n.ImportID != "" && imported[n.AccountID][n.ImportID] {
				result.DuplicateImportIDs = append(result.DuplicateImportIDs, n.ImportID)
				continue
			}

			t := ynab.Transaction{
				ID:        uuid.NewString(),
				Date:      n.Date,
				Amount:    n.Amount,
				Cleared:   n.Cleared,
				Approved:  n.Approved,
				FlagColor: n.FlagColor,
				AccountID: n.AccountID,
			}
			if t.Cleared == "" {
				t.Cleared = ynab.ClearedUncleared
			}
			if n.Memo != "" {
				t.Memo = ynab.String(n.Memo)
			}
			if n.PayeeName != "" {
				t.PayeeName = ynab.String(n.PayeeName)
			}
			if n.ImportID != "" {
				t.ImportID = ynab.String(n.ImportID)
				if imported[n.AccountID] == nil {
					imported[n.AccountID] = map[string]bool{}
				}
				imported[n.AccountID][n.ImportID] = true
			}

			key, err := nextKey(b)
			if err != nil {
				return err
			}
			if err := putJSON(b, key, t); err != nil {
				return err
			}
			result.TransactionIDs = append(result.TransactionIDs, t.ID)
			result.Transactions = append(result.Transactions, t)
		}
		return nil
	})
	if err != nil {
		return ynab.SaveResult{}, err
	}
	return result, nil
}

// UpdateFlag sets or, with a nil color, clears the flag of a transaction.
func (s *Store) UpdateFlag(id string, color *string) (ynab.Transaction, error) {
	if color != nil && *color == "" {
		color = nil
	}

	var updated ynab.Transaction
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketTransactions))
		key, t, err := findTransaction(b, id)
		if err != nil {
			return err
		}
		if key == nil {
			return ErrNotFound
		}
		t.FlagColor = color
		updated = t
		return putJSON(b, key, t)
	})
	return updated, err
}

func openAccount(accounts *bolt.Bucket, id string) (bool, error) {
	data := accounts.Get([]byte(id))
	if data == nil {
		return false, nil
	}
	var a ynab.Account
	if err := json.Unmarshal(data, &a); err != nil {
		return false, err
	}
	return !a.Deleted, nil
}

func eachTransaction(b *bolt.Bucket, fn func(key []byte, t ynab.Transaction) error) error {
	return b.ForEach(func(k, v []byte) error {
		var t ynab.Transaction
		if err := json.Unmarshal(v, &t); err != nil {
			return err
		}
		return fn(k, t)
	})
}

// findTransaction returns the key and value of the transaction with the
// given id, or a nil key when there is none.
func findTransaction(b *bolt.Bucket, id string) ([]byte, ynab.Transaction, error) {
	c := b.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var t ynab.Transaction
		if err := json.Unmarshal(v, &t); err != nil {
			return nil, ynab.Transaction{}, err
		}
		if t.ID == id {
			// Copy the key since it's only valid during the transaction.
			return append([]byte(nil), k...), t, nil
		}
	}
	return nil, ynab.Transaction{}, nil
}

func nextKey(b *bolt.Bucket) ([]byte, error) {
	seq, err := b.NextSequence()
	if err != nil {
		return nil, err
	}
	return itob(int64(seq)), nil
}

func putJSON(b *bolt.Bucket, key []byte, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return b.Put(key, data)
}

// itob converts an int64 to a byte slice for use as a bbolt key.
func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}
