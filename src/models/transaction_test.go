package models

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndListTransactions(t *testing.T) {
	db := newTestDB(t)

	food := &Category{UserID: 1, Name: "Food", Type: TypeExpense}
	require.NoError(t, food.CreateCategory(db))

	first := &Transaction{UserID: 1, CategoryID: food.ID, Description: "Groceries", Amount: 54.20, Type: TypeExpense, Date: "2024-02-10"}
	require.NoError(t, first.CreateTransaction(db))
	assert.NotEmpty(t, first.ID)

	second := &Transaction{UserID: 1, Description: "Salary", Amount: 2500, Type: TypeIncome, Date: "2024-02-25"}
	require.NoError(t, second.CreateTransaction(db))

	got, err := ListTransactions(db, 1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Salary", got[0].Description, "newest first")
	assert.Equal(t, "Uncategorized", got[0].Category, "missing category falls back")
	assert.Equal(t, "Food", got[1].Category)
}

func TestListTransactionsScopedToUser(t *testing.T) {
	db := newTestDB(t)
	_, err := db.Exec(`INSERT INTO users (id, username, email, password) VALUES (2, 'other', 'other@example.com', 'x')`)
	require.NoError(t, err)

	mine := &Transaction{UserID: 1, Description: "Mine", Amount: 10, Type: TypeExpense, Date: "2024-01-01"}
	require.NoError(t, mine.CreateTransaction(db))
	theirs := &Transaction{UserID: 2, Description: "Theirs", Amount: 10, Type: TypeExpense, Date: "2024-01-01"}
	require.NoError(t, theirs.CreateTransaction(db))

	got, err := ListTransactions(db, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Mine", got[0].Description)
}

func TestUpdateTransaction(t *testing.T) {
	db := newTestDB(t)
	tx := &Transaction{UserID: 1, Description: "Cofee", Amount: 3, Type: TypeExpense, Date: "2024-01-05"}
	require.NoError(t, tx.CreateTransaction(db))

	tx.Description = "Coffee"
	tx.Amount = 3.50
	require.NoError(t, tx.UpdateTransaction(db))

	got, err := ListTransactions(db, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Coffee", got[0].Description)
	assert.InDelta(t, 3.50, got[0].Amount, 0.001)
}

func TestUpdateTransactionWrongUser(t *testing.T) {
	db := newTestDB(t)
	tx := &Transaction{UserID: 1, Description: "Coffee", Amount: 3, Type: TypeExpense, Date: "2024-01-05"}
	require.NoError(t, tx.CreateTransaction(db))

	stolen := *tx
	stolen.UserID = 99
	err := stolen.UpdateTransaction(db)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestDeleteTransaction(t *testing.T) {
	db := newTestDB(t)
	tx := &Transaction{UserID: 1, Description: "Coffee", Amount: 3, Type: TypeExpense, Date: "2024-01-05"}
	require.NoError(t, tx.CreateTransaction(db))

	require.NoError(t, DeleteTransaction(db, 1, tx.ID))
	assert.ErrorIs(t, DeleteTransaction(db, 1, tx.ID), sql.ErrNoRows)
}

func TestCurrentBalance(t *testing.T) {
	db := newTestDB(t)
	for _, tx := range []*Transaction{
		{UserID: 1, Description: "Salary", Amount: 2500, Type: TypeIncome, Date: "2024-02-01"},
		{UserID: 1, Description: "Rent", Amount: 900, Type: TypeExpense, Date: "2024-02-02"},
		{UserID: 1, Description: "Groceries", Amount: 100.50, Type: TypeExpense, Date: "2024-02-03"},
	} {
		require.NoError(t, tx.CreateTransaction(db))
	}

	balance, err := CurrentBalance(db, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1499.50, balance, 0.001)
}

func TestRecentTransactionsLimit(t *testing.T) {
	db := newTestDB(t)
	dates := []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04"}
	for _, date := range dates {
		tx := &Transaction{UserID: 1, Description: "Entry " + date, Amount: 1, Type: TypeExpense, Date: date}
		require.NoError(t, tx.CreateTransaction(db))
	}

	got, err := RecentTransactions(db, 1, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Entry 2024-01-04", got[0].Description)
}
