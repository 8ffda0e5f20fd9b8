package models

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Transaction direction. Amounts are always non-negative; the sign
// information lives here.
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// Transaction is the canonical transaction shape shared by manually
// entered rows and bank-synced rows. Manual rows are persisted in
// SQLite and owned by the user; bank-synced rows are produced fresh on
// every sync (id prefixed with "bank_") and never written to the
// database.
type Transaction struct {
	ID                string  `json:"id"`
	UserID            int64   `json:"-"`
	CategoryID        string  `json:"category_id,omitempty"`
	Description       string  `json:"description"`
	Amount            float64 `json:"amount"`
	Type              string  `json:"type"`
	Category          string  `json:"category"`
	Date              string  `json:"date"` // YYYY-MM-DD
	SourceAccountID   string  `json:"source_account_id,omitempty"`
	SourceAccountName string  `json:"source_account_name,omitempty"`
	IsBankSourced     bool    `json:"is_bank_sourced"`
	// Diagnostic flag for provider sandbox data; never real finances.
	Sandbox bool `json:"sandbox,omitempty"`
}

// ListTransactions returns the user's manually entered transactions,
// newest first, with the category name joined in.
func ListTransactions(db *sql.DB, userID int64) ([]Transaction, error) {
	rows, err := db.Query(`
		SELECT t.id, t.category_id, t.description, t.amount, t.type, t.date,
		       COALESCE(c.name, 'Uncategorized')
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = ?
		ORDER BY t.date DESC, t.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	transactions := []Transaction{}
	for rows.Next() {
		var tx Transaction
		var categoryID sql.NullString
		if err := rows.Scan(&tx.ID, &categoryID, &tx.Description, &tx.Amount, &tx.Type, &tx.Date, &tx.Category); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		tx.CategoryID = categoryID.String
		tx.UserID = userID
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

// CreateTransaction inserts a manually entered transaction and fills
// in the generated id.
func (t *Transaction) CreateTransaction(db *sql.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now()

	var categoryID interface{}
	if t.CategoryID != "" {
		categoryID = t.CategoryID
	}

	_, err := db.Exec(`
		INSERT INTO transactions (id, user_id, category_id, description, amount, type, date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, categoryID, t.Description, t.Amount, t.Type, t.Date, now, now)
	if err != nil {
		return fmt.Errorf("inserting transaction: %w", err)
	}
	return nil
}

// UpdateTransaction updates a user's transaction by id.
func (t *Transaction) UpdateTransaction(db *sql.DB) error {
	var categoryID interface{}
	if t.CategoryID != "" {
		categoryID = t.CategoryID
	}

	res, err := db.Exec(`
		UPDATE transactions
		SET category_id = ?, description = ?, amount = ?, type = ?, date = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		categoryID, t.Description, t.Amount, t.Type, t.Date, time.Now(), t.ID, t.UserID)
	if err != nil {
		return fmt.Errorf("updating transaction: %w", err)
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

// DeleteTransaction removes a user's transaction by id.
func DeleteTransaction(db *sql.DB, userID int64, id string) error {
	res, err := db.Exec(`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
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

// CurrentBalance returns income minus expenses over all of the user's
// manually entered transactions.
func CurrentBalance(db *sql.DB, userID int64) (float64, error) {
	var balance float64
	err := db.QueryRow(`
		SELECT COALESCE(SUM(CASE WHEN type = 'income' THEN amount ELSE -amount END), 0)
		FROM transactions WHERE user_id = ?`, userID).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("computing balance: %w", err)
	}
	return balance, nil
}

// RecentTransactions returns the user's most recent manual
// transactions, for the chat assistant's context window.
func RecentTransactions(db *sql.DB, userID int64, limit int) ([]Transaction, error) {
	rows, err := db.Query(`
		SELECT t.id, t.description, t.amount, t.type, t.date, COALESCE(c.name, 'Uncategorized')
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = ?
		ORDER BY t.date DESC, t.created_at DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent transactions: %w", err)
	}
	defer rows.Close()

	transactions := []Transaction{}
	for rows.Next() {
		var tx Transaction
		if err := rows.Scan(&tx.ID, &tx.Description, &tx.Amount, &tx.Type, &tx.Date, &tx.Category); err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}
