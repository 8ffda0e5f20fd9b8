package models

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateScheduleDefaults(t *testing.T) {
	db := newTestDB(t)

	s := &Schedule{UserID: 1, Title: "Rent", Amount: 900, Type: TypeExpense, DueDate: "2024-03-01"}
	require.NoError(t, s.CreateSchedule(db))
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, SchedulePending, s.Status)
	assert.Equal(t, RecurrenceOnce, s.Recurrence)
	assert.Equal(t, 3, s.NotifyDaysBefore)
}

func TestListUpcomingAndOverdueSchedules(t *testing.T) {
	db := newTestDB(t)
	today := time.Now()

	overdue := &Schedule{UserID: 1, Title: "Old bill", Amount: 50, Type: TypeExpense,
		DueDate: today.AddDate(0, 0, -5).Format("2006-01-02")}
	require.NoError(t, overdue.CreateSchedule(db))

	soon := &Schedule{UserID: 1, Title: "Electricity", Amount: 80, Type: TypeExpense,
		DueDate: today.AddDate(0, 0, 3).Format("2006-01-02")}
	require.NoError(t, soon.CreateSchedule(db))

	far := &Schedule{UserID: 1, Title: "Insurance", Amount: 300, Type: TypeExpense,
		DueDate: today.AddDate(0, 0, 60).Format("2006-01-02")}
	require.NoError(t, far.CreateSchedule(db))

	paid := &Schedule{UserID: 1, Title: "Water", Amount: 30, Type: TypeExpense,
		DueDate: today.AddDate(0, 0, 2).Format("2006-01-02")}
	require.NoError(t, paid.CreateSchedule(db))
	require.NoError(t, MarkSchedulePaid(db, 1, paid.ID))

	upcoming, err := ListUpcomingSchedules(db, 1, 30)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "Electricity", upcoming[0].Title)

	late, err := ListOverdueSchedules(db, 1)
	require.NoError(t, err)
	require.Len(t, late, 1)
	assert.Equal(t, "Old bill", late[0].Title)

	all, err := ListSchedules(db, 1)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestMarkSchedulePaid(t *testing.T) {
	db := newTestDB(t)

	s := &Schedule{UserID: 1, Title: "Rent", Amount: 900, Type: TypeExpense, DueDate: "2024-03-01"}
	require.NoError(t, s.CreateSchedule(db))

	require.NoError(t, MarkSchedulePaid(db, 1, s.ID))
	all, err := ListSchedules(db, 1)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, SchedulePaid, all[0].Status)

	assert.ErrorIs(t, MarkSchedulePaid(db, 1, "missing"), sql.ErrNoRows)
}

func TestUpdateAndDeleteSchedule(t *testing.T) {
	db := newTestDB(t)

	s := &Schedule{UserID: 1, Title: "Gym", Amount: 40, Type: TypeExpense, DueDate: "2024-03-10", Recurrence: RecurrenceMonthly}
	require.NoError(t, s.CreateSchedule(db))

	s.Amount = 45
	s.Title = "Gym membership"
	require.NoError(t, s.UpdateSchedule(db))

	all, err := ListSchedules(db, 1)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Gym membership", all[0].Title)
	assert.InDelta(t, 45, all[0].Amount, 0.001)
	assert.Equal(t, RecurrenceMonthly, all[0].Recurrence)

	require.NoError(t, DeleteSchedule(db, 1, s.ID))
	assert.ErrorIs(t, DeleteSchedule(db, 1, s.ID), sql.ErrNoRows)
}
