package models

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Category classifies transactions and schedules. Each user gets a
// seeded default set at registration and can add their own.
type Category struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"-"`
	Name      string    `json:"name"`
	Type      string    `json:"type"` // income | expense
	Color     string    `json:"color,omitempty"`
	Icon      string    `json:"icon,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

var defaultCategories = []Category{
	{Name: "Salary", Type: TypeIncome, Color: "#22c55e", Icon: "banknote"},
	{Name: "Investments", Type: TypeIncome, Color: "#16a34a", Icon: "trending-up"},
	{Name: "Food", Type: TypeExpense, Color: "#f97316", Icon: "utensils"},
	{Name: "Housing", Type: TypeExpense, Color: "#3b82f6", Icon: "home"},
	{Name: "Transport", Type: TypeExpense, Color: "#eab308", Icon: "car"},
	{Name: "Health", Type: TypeExpense, Color: "#ef4444", Icon: "heart-pulse"},
	{Name: "Leisure", Type: TypeExpense, Color: "#a855f7", Icon: "gamepad-2"},
	{Name: "Other", Type: TypeExpense, Color: "#6b7280", Icon: "circle-ellipsis"},
}

// ListCategories returns the user's categories ordered by name.
func ListCategories(db *sql.DB, userID int64) ([]Category, error) {
	rows, err := db.Query(`
		SELECT id, name, type, COALESCE(color, ''), COALESCE(icon, ''), created_at
		FROM categories WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	categories := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.Color, &c.Icon, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		c.UserID = userID
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CreateCategory inserts a category and fills in the generated id.
func (c *Category) CreateCategory(db *sql.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = time.Now()
	_, err := db.Exec(`
		INSERT INTO categories (id, user_id, name, type, color, icon, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, c.Type, c.Color, c.Icon, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting category: %w", err)
	}
	return nil
}

// DeleteCategory removes a user's category. Transactions referencing
// it fall back to NULL (ON DELETE SET NULL).
func DeleteCategory(db *sql.DB, userID int64, id string) error {
	res, err := db.Exec(`DELETE FROM categories WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting category: %w", err)
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

// SeedDefaultCategories inserts the default category set for a newly
// registered user. Existing names are left untouched.
func SeedDefaultCategories(db *sql.DB, userID int64) error {
	for _, c := range defaultCategories {
		_, err := db.Exec(`
			INSERT OR IGNORE INTO categories (id, user_id, name, type, color, icon, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), userID, c.Name, c.Type, c.Color, c.Icon, time.Now())
		if err != nil {
			return fmt.Errorf("seeding category %q: %w", c.Name, err)
		}
	}
	return nil
}
