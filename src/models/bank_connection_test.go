package models

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndListBankConnections(t *testing.T) {
	db := newTestDB(t)

	first := &BankConnection{UserID: 1, ItemID: "item-1", Institution: "Bank A"}
	require.NoError(t, first.CreateBankConnection(db))
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "active", first.Status)

	second := &BankConnection{UserID: 1, ItemID: "item-2", Institution: "Bank B"}
	require.NoError(t, second.CreateBankConnection(db))

	got, err := ListBankConnections(db, 1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "item-1", got[0].ItemID, "oldest first")
}

func TestCreateBankConnectionDuplicateItem(t *testing.T) {
	db := newTestDB(t)

	first := &BankConnection{UserID: 1, ItemID: "item-1", Institution: "Bank A"}
	require.NoError(t, first.CreateBankConnection(db))

	dup := &BankConnection{UserID: 1, ItemID: "item-1", Institution: "Bank A again"}
	assert.Error(t, dup.CreateBankConnection(db), "item_id is unique per user")
}

func TestConnectionItemIDsSkipsInactive(t *testing.T) {
	db := newTestDB(t)

	active := &BankConnection{UserID: 1, ItemID: "item-1", Institution: "Bank A"}
	require.NoError(t, active.CreateBankConnection(db))
	disabled := &BankConnection{UserID: 1, ItemID: "item-2", Institution: "Bank B", Status: "disabled"}
	require.NoError(t, disabled.CreateBankConnection(db))

	itemIDs, err := ConnectionItemIDs(db, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"item-1"}, itemIDs)
}

func TestDeleteBankConnection(t *testing.T) {
	db := newTestDB(t)

	conn := &BankConnection{UserID: 1, ItemID: "item-1", Institution: "Bank A"}
	require.NoError(t, conn.CreateBankConnection(db))

	require.NoError(t, DeleteBankConnection(db, 1, conn.ID))
	assert.ErrorIs(t, DeleteBankConnection(db, 1, conn.ID), sql.ErrNoRows)
}
