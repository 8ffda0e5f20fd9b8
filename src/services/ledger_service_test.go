package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/username/mango/backend/src/models"
	"github.com/username/mango/backend/src/pluggy"
)

func TestMergeSortsByDateDescending(t *testing.T) {
	local := []models.Transaction{
		{ID: "m-1", Date: "2024-01-10", Description: "Rent"},
		{ID: "m-2", Date: "2024-03-05", Description: "Salary"},
	}
	bank := []models.Transaction{
		{ID: "bank_1", Date: "2024-02-20", Description: "Card payment"},
		{ID: "bank_2", Date: "2024-01-02", Description: "Groceries"},
	}

	merged := Merge(local, bank)

	require.Len(t, merged, 4, "merge never drops rows")
	for i := 1; i < len(merged); i++ {
		assert.GreaterOrEqual(t, merged[i-1].Date, merged[i].Date,
			"dates must be non-increasing")
	}
	assert.Equal(t, "m-2", merged[0].ID)
	assert.Equal(t, "bank_2", merged[3].ID)
}

func TestMergeIsStableOnEqualDates(t *testing.T) {
	local := []models.Transaction{
		{ID: "m-1", Date: "2024-01-10"},
		{ID: "m-2", Date: "2024-01-10"},
	}
	bank := []models.Transaction{
		{ID: "bank_1", Date: "2024-01-10"},
	}

	merged := Merge(local, bank)

	require.Len(t, merged, 3)
	assert.Equal(t, []string{"m-1", "m-2", "bank_1"},
		[]string{merged[0].ID, merged[1].ID, merged[2].ID},
		"ties keep input order: local first, then bank")
}

func TestMergeDoesNotDeduplicate(t *testing.T) {
	local := []models.Transaction{
		{ID: "m-1", Date: "2024-01-10", Description: "Coffee", Amount: 3.50},
	}
	bank := []models.Transaction{
		{ID: "bank_x", Date: "2024-01-10", Description: "Coffee", Amount: 3.50},
	}

	merged := Merge(local, bank)
	assert.Len(t, merged, 2, "identical-looking rows from the two sources both survive")
}

func TestMergeEmptyInputs(t *testing.T) {
	assert.Empty(t, Merge(nil, nil))

	local := []models.Transaction{{ID: "m-1", Date: "2024-01-10"}}
	assert.Len(t, Merge(local, nil), 1)
	assert.Len(t, Merge(nil, local), 1)
}

func newLedgerTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE categories (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			color TEXT,
			icon TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE transactions (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			category_id TEXT,
			description TEXT NOT NULL,
			amount REAL NOT NULL CHECK (amount >= 0),
			type TEXT NOT NULL CHECK (type IN ('income', 'expense')),
			date TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE bank_connections (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			item_id TEXT NOT NULL,
			institution TEXT,
			status TEXT NOT NULL DEFAULT 'active',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_id, item_id)
		);`)
	require.NoError(t, err)
	return db
}

func TestLedgerManualOnly(t *testing.T) {
	db := newLedgerTestDB(t)
	tx := &models.Transaction{UserID: 1, Description: "Rent", Amount: 900, Type: models.TypeExpense, Date: "2024-02-01"}
	require.NoError(t, tx.CreateTransaction(db))

	svc := NewLedgerService(db, NewBankSyncService(newFakeAggregator(), BankSyncConfig{}),
		cache.New(time.Minute, time.Minute), 6)

	view, err := svc.Ledger(context.Background(), 1, false)
	require.NoError(t, err)
	require.Len(t, view.Transactions, 1)
	assert.Empty(t, view.Errors, "no connections means no sync errors, not a failure")
}

func TestLedgerMergesBankRows(t *testing.T) {
	db := newLedgerTestDB(t)
	manual := &models.Transaction{UserID: 1, Description: "Rent", Amount: 900, Type: models.TypeExpense, Date: "2024-02-01"}
	require.NoError(t, manual.CreateTransaction(db))
	conn := &models.BankConnection{UserID: 1, ItemID: "item-1", Institution: "Sandbox Bank"}
	require.NoError(t, conn.CreateBankConnection(db))

	fake := newFakeAggregator()
	fake.accountsByItem["item-1"] = []pluggy.Account{{ID: "acc-1", Name: "Checking"}}
	fake.pagesByAccount["acc-1"] = []*pluggy.TransactionPage{
		{Results: []pluggy.Transaction{{ID: "tx-1", Amount: -12.30, Date: "2024-02-15"}}, TotalPages: 1, Page: 1},
	}

	svc := NewLedgerService(db, NewBankSyncService(fake, BankSyncConfig{}),
		cache.New(time.Minute, time.Minute), 6)

	view, err := svc.Ledger(context.Background(), 1, false)
	require.NoError(t, err)
	require.Len(t, view.Transactions, 2)
	assert.Equal(t, "bank_tx-1", view.Transactions[0].ID, "bank row is newer, sorts first")
	assert.Empty(t, view.Errors)
}

func TestLedgerCachesCleanSyncOnly(t *testing.T) {
	db := newLedgerTestDB(t)
	conn := &models.BankConnection{UserID: 1, ItemID: "item-1"}
	require.NoError(t, conn.CreateBankConnection(db))

	fake := newFakeAggregator()
	fake.accountsByItem["item-1"] = []pluggy.Account{{ID: "acc-1"}}
	fake.pagesByAccount["acc-1"] = []*pluggy.TransactionPage{
		{Results: []pluggy.Transaction{{ID: "tx-1", Amount: 5, Date: "2024-02-15"}}, TotalPages: 1, Page: 1},
	}

	svc := NewLedgerService(db, NewBankSyncService(fake, BankSyncConfig{}),
		cache.New(time.Minute, time.Minute), 6)

	_, err := svc.Ledger(context.Background(), 1, false)
	require.NoError(t, err)
	_, err = svc.Ledger(context.Background(), 1, false)
	require.NoError(t, err)
	assert.Equal(t, 1, fake.pageCalls["acc-1"], "second read must come from cache")

	// refresh=true bypasses the cache.
	_, err = svc.Ledger(context.Background(), 1, true)
	require.NoError(t, err)
	assert.Equal(t, 2, fake.pageCalls["acc-1"])
}

func TestLedgerDoesNotCacheFailedSync(t *testing.T) {
	db := newLedgerTestDB(t)
	conn := &models.BankConnection{UserID: 1, ItemID: "item-1"}
	require.NoError(t, conn.CreateBankConnection(db))

	fake := newFakeAggregator()
	fake.itemErrs["item-1"] = errors.New("provider down")

	svc := NewLedgerService(db, NewBankSyncService(fake, BankSyncConfig{}),
		cache.New(time.Minute, time.Minute), 6)

	view, err := svc.Ledger(context.Background(), 1, false)
	require.NoError(t, err)
	assert.Contains(t, view.Errors["item-1"], "provider down")

	// A failed result is not cached; the next read retries.
	fake.itemErrs = map[string]error{}
	fake.accountsByItem["item-1"] = []pluggy.Account{}
	view, err = svc.Ledger(context.Background(), 1, false)
	require.NoError(t, err)
	assert.Empty(t, view.Errors)
}

func TestInvalidateBankCache(t *testing.T) {
	db := newLedgerTestDB(t)
	conn := &models.BankConnection{UserID: 1, ItemID: "item-1"}
	require.NoError(t, conn.CreateBankConnection(db))

	fake := newFakeAggregator()
	fake.accountsByItem["item-1"] = []pluggy.Account{{ID: "acc-1"}}
	fake.pagesByAccount["acc-1"] = []*pluggy.TransactionPage{
		{Results: []pluggy.Transaction{}, TotalPages: 1, Page: 1},
	}

	svc := NewLedgerService(db, NewBankSyncService(fake, BankSyncConfig{}),
		cache.New(time.Minute, time.Minute), 6)

	_, err := svc.Ledger(context.Background(), 1, false)
	require.NoError(t, err)

	svc.InvalidateBankCache(1)

	_, err = svc.Ledger(context.Background(), 1, false)
	require.NoError(t, err)
	assert.Equal(t, 2, fake.pageCalls["acc-1"])
}
