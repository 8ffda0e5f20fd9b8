package models

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BankConnection stores one Pluggy item id the user has connected.
// Only the opaque item id is persisted server-side; API credentials
// never touch this table.
type BankConnection struct {
	ID          string    `json:"id"`
	UserID      int64     `json:"-"`
	ItemID      string    `json:"item_id"`
	Institution string    `json:"institution"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListBankConnections returns the user's connections, oldest first.
func ListBankConnections(db *sql.DB, userID int64) ([]BankConnection, error) {
	rows, err := db.Query(`
		SELECT id, item_id, institution, status, created_at, updated_at
		FROM bank_connections WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying bank connections: %w", err)
	}
	defer rows.Close()

	connections := []BankConnection{}
	for rows.Next() {
		var bc BankConnection
		if err := rows.Scan(&bc.ID, &bc.ItemID, &bc.Institution, &bc.Status, &bc.CreatedAt, &bc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning bank connection: %w", err)
		}
		bc.UserID = userID
		connections = append(connections, bc)
	}
	return connections, rows.Err()
}

// ConnectionItemIDs returns the item ids of the user's active
// connections, in insertion order.
func ConnectionItemIDs(db *sql.DB, userID int64) ([]string, error) {
	rows, err := db.Query(`
		SELECT item_id FROM bank_connections
		WHERE user_id = ? AND status = 'active' ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying connection item ids: %w", err)
	}
	defer rows.Close()

	itemIDs := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		itemIDs = append(itemIDs, id)
	}
	return itemIDs, rows.Err()
}

// CreateBankConnection inserts a connection and fills in the generated id.
func (bc *BankConnection) CreateBankConnection(db *sql.DB) error {
	if bc.ID == "" {
		bc.ID = uuid.New().String()
	}
	if bc.Status == "" {
		bc.Status = "active"
	}
	now := time.Now()
	bc.CreatedAt = now
	bc.UpdatedAt = now

	_, err := db.Exec(`
		INSERT INTO bank_connections (id, user_id, item_id, institution, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		bc.ID, bc.UserID, bc.ItemID, bc.Institution, bc.Status, bc.CreatedAt, bc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting bank connection: %w", err)
	}
	return nil
}

// DeleteBankConnection removes a user's connection by id.
func DeleteBankConnection(db *sql.DB, userID int64, id string) error {
	res, err := db.Exec(`DELETE FROM bank_connections WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting bank connection: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
