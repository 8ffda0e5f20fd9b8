package models

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Schedule statuses and recurrence values.
const (
	SchedulePending   = "pending"
	SchedulePaid      = "paid"
	ScheduleOverdue   = "overdue"
	ScheduleCancelled = "cancelled"

	RecurrenceOnce    = "once"
	RecurrenceWeekly  = "weekly"
	RecurrenceMonthly = "monthly"
	RecurrenceYearly  = "yearly"
)

// Schedule is a scheduled bill or expected income with an optional
// recurrence.
type Schedule struct {
	ID               string    `json:"id"`
	UserID           int64     `json:"-"`
	CategoryID       string    `json:"category_id,omitempty"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	Amount           float64   `json:"amount"`
	Type             string    `json:"type"` // income | expense
	DueDate          string    `json:"due_date"` // YYYY-MM-DD
	Recurrence       string    `json:"recurrence"`
	Status           string    `json:"status"`
	NotifyDaysBefore int       `json:"notify_days_before"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func scanSchedules(rows *sql.Rows, userID int64) ([]Schedule, error) {
	schedules := []Schedule{}
	for rows.Next() {
		var s Schedule
		var categoryID sql.NullString
		if err := rows.Scan(&s.ID, &categoryID, &s.Title, &s.Description, &s.Amount, &s.Type,
			&s.DueDate, &s.Recurrence, &s.Status, &s.NotifyDaysBefore, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning schedule: %w", err)
		}
		s.CategoryID = categoryID.String
		s.UserID = userID
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

const scheduleColumns = `id, category_id, title, COALESCE(description, ''), amount, type,
	due_date, recurrence, status, notify_days_before, created_at, updated_at`

// ListSchedules returns the user's schedules ordered by due date.
func ListSchedules(db *sql.DB, userID int64) ([]Schedule, error) {
	rows, err := db.Query(`SELECT `+scheduleColumns+` FROM schedules WHERE user_id = ? ORDER BY due_date`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying schedules: %w", err)
	}
	defer rows.Close()
	return scanSchedules(rows, userID)
}

// ListUpcomingSchedules returns pending schedules due within the next
// n days.
func ListUpcomingSchedules(db *sql.DB, userID int64, days int) ([]Schedule, error) {
	today := time.Now().Format("2006-01-02")
	limit := time.Now().AddDate(0, 0, days).Format("2006-01-02")
	rows, err := db.Query(`SELECT `+scheduleColumns+`
		FROM schedules
		WHERE user_id = ? AND status = 'pending' AND due_date >= ? AND due_date <= ?
		ORDER BY due_date`, userID, today, limit)
	if err != nil {
		return nil, fmt.Errorf("querying upcoming schedules: %w", err)
	}
	defer rows.Close()
	return scanSchedules(rows, userID)
}

// ListOverdueSchedules returns pending schedules whose due date has
// passed.
func ListOverdueSchedules(db *sql.DB, userID int64) ([]Schedule, error) {
	today := time.Now().Format("2006-01-02")
	rows, err := db.Query(`SELECT `+scheduleColumns+`
		FROM schedules
		WHERE user_id = ? AND status = 'pending' AND due_date < ?
		ORDER BY due_date`, userID, today)
	if err != nil {
		return nil, fmt.Errorf("querying overdue schedules: %w", err)
	}
	defer rows.Close()
	return scanSchedules(rows, userID)
}

// CreateSchedule inserts a schedule and fills in the generated id.
func (s *Schedule) CreateSchedule(db *sql.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Status == "" {
		s.Status = SchedulePending
	}
	if s.Recurrence == "" {
		s.Recurrence = RecurrenceOnce
	}
	if s.NotifyDaysBefore == 0 {
		s.NotifyDaysBefore = 3
	}
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now

	var categoryID interface{}
	if s.CategoryID != "" {
		categoryID = s.CategoryID
	}

	_, err := db.Exec(`
		INSERT INTO schedules (id, user_id, category_id, title, description, amount, type, due_date, recurrence, status, notify_days_before, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, categoryID, s.Title, s.Description, s.Amount, s.Type, s.DueDate,
		s.Recurrence, s.Status, s.NotifyDaysBefore, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting schedule: %w", err)
	}
	return nil
}

// UpdateSchedule updates a user's schedule by id.
func (s *Schedule) UpdateSchedule(db *sql.DB) error {
	s.UpdatedAt = time.Now()

	var categoryID interface{}
	if s.CategoryID != "" {
		categoryID = s.CategoryID
	}

	res, err := db.Exec(`
		UPDATE schedules
		SET category_id = ?, title = ?, description = ?, amount = ?, type = ?, due_date = ?,
		    recurrence = ?, status = ?, notify_days_before = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		categoryID, s.Title, s.Description, s.Amount, s.Type, s.DueDate,
		s.Recurrence, s.Status, s.NotifyDaysBefore, s.UpdatedAt, s.ID, s.UserID)
	if err != nil {
		return fmt.Errorf("updating schedule: %w", err)
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

// MarkSchedulePaid sets a schedule's status to paid.
func MarkSchedulePaid(db *sql.DB, userID int64, id string) error {
	res, err := db.Exec(`UPDATE schedules SET status = 'paid', updated_at = ? WHERE id = ? AND user_id = ?`,
		time.Now(), id, userID)
	if err != nil {
		return fmt.Errorf("marking schedule paid: %w", err)
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

// DeleteSchedule removes a user's schedule by id.
func DeleteSchedule(db *sql.DB, userID int64, id string) error {
	res, err := db.Exec(`DELETE FROM schedules WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting schedule: %w", err)
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
