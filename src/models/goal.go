package models

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Goal statuses.
const (
	GoalActive    = "active"
	GoalCompleted = "completed"
	GoalCancelled = "cancelled"
)

// Goal is a savings target the user tracks progress against.
type Goal struct {
	ID            string    `json:"id"`
	UserID        int64     `json:"-"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	TargetAmount  float64   `json:"target_amount"`
	CurrentAmount float64   `json:"current_amount"`
	Deadline      string    `json:"deadline,omitempty"` // YYYY-MM-DD
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ListGoals returns the user's goals, newest first.
func ListGoals(db *sql.DB, userID int64) ([]Goal, error) {
	rows, err := db.Query(`
		SELECT id, title, COALESCE(description, ''), target_amount, current_amount,
		       COALESCE(deadline, ''), status, created_at, updated_at
		FROM goals WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying goals: %w", err)
	}
	defer rows.Close()

	goals := []Goal{}
	for rows.Next() {
		var g Goal
		if err := rows.Scan(&g.ID, &g.Title, &g.Description, &g.TargetAmount, &g.CurrentAmount,
			&g.Deadline, &g.Status, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning goal: %w", err)
		}
		g.UserID = userID
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// CreateGoal inserts a goal and fills in the generated id.
func (g *Goal) CreateGoal(db *sql.DB) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if g.Status == "" {
		g.Status = GoalActive
	}
	now := time.Now()
	g.CreatedAt = now
	g.UpdatedAt = now

	_, err := db.Exec(`
		INSERT INTO goals (id, user_id, title, description, target_amount, current_amount, deadline, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Title, g.Description, g.TargetAmount, g.CurrentAmount, g.Deadline, g.Status, g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting goal: %w", err)
	}
	return nil
}

// UpdateGoal updates title, amounts, deadline and status.
func (g *Goal) UpdateGoal(db *sql.DB) error {
	g.UpdatedAt = time.Now()
	res, err := db.Exec(`
		UPDATE goals
		SET title = ?, description = ?, target_amount = ?, current_amount = ?, deadline = ?, status = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		g.Title, g.Description, g.TargetAmount, g.CurrentAmount, g.Deadline, g.Status, g.UpdatedAt, g.ID, g.UserID)
	if err != nil {
		return fmt.Errorf("updating goal: %w", err)
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

// UpdateGoalProgress adds delta to the goal's current amount, marking
// it completed when the target is reached.
func UpdateGoalProgress(db *sql.DB, userID int64, id string, delta float64) error {
	res, err := db.Exec(`
		UPDATE goals
		SET current_amount = current_amount + ?,
		    status = CASE WHEN current_amount + ? >= target_amount THEN 'completed' ELSE status END,
		    updated_at = ?
		WHERE id = ? AND user_id = ? AND status = 'active'`,
		delta, delta, time.Now(), id, userID)
	if err != nil {
		return fmt.Errorf("updating goal progress: %w", err)
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

// DeleteGoal removes a user's goal by id.
func DeleteGoal(db *sql.DB, userID int64, id string) error {
	res, err := db.Exec(`DELETE FROM goals WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting goal: %w", err)
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
