package models

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedDefaultCategories(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, SeedDefaultCategories(db, 1))
	got, err := ListCategories(db, 1)
	require.NoError(t, err)
	assert.Len(t, got, len(defaultCategories))

	// Seeding twice must not duplicate.
	require.NoError(t, SeedDefaultCategories(db, 1))
	got, err = ListCategories(db, 1)
	require.NoError(t, err)
	assert.Len(t, got, len(defaultCategories))
}

func TestCreateAndDeleteCategory(t *testing.T) {
	db := newTestDB(t)

	category := &Category{UserID: 1, Name: "Pets", Type: TypeExpense, Color: "#000000", Icon: "paw"}
	require.NoError(t, category.CreateCategory(db))
	assert.NotEmpty(t, category.ID)

	got, err := ListCategories(db, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Pets", got[0].Name)

	require.NoError(t, DeleteCategory(db, 1, category.ID))
	assert.ErrorIs(t, DeleteCategory(db, 1, category.ID), sql.ErrNoRows)
}

func TestDeleteCategoryKeepsTransactions(t *testing.T) {
	db := newTestDB(t)

	category := &Category{UserID: 1, Name: "Food", Type: TypeExpense}
	require.NoError(t, category.CreateCategory(db))
	tx := &Transaction{UserID: 1, CategoryID: category.ID, Description: "Groceries", Amount: 10, Type: TypeExpense, Date: "2024-01-01"}
	require.NoError(t, tx.CreateTransaction(db))

	require.NoError(t, DeleteCategory(db, 1, category.ID))

	got, err := ListTransactions(db, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Uncategorized", got[0].Category)
}
