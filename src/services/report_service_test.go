package services

import (
	"database/sql"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/mango/backend/src/models"
)

func newReportTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db := newLedgerTestDB(t)
	_, err := db.Exec(`
		CREATE TABLE goals (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			target_amount REAL NOT NULL,
			current_amount REAL NOT NULL DEFAULT 0,
			deadline TEXT,
			status TEXT NOT NULL DEFAULT 'active',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE schedules (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			category_id TEXT,
			title TEXT NOT NULL,
			description TEXT,
			amount REAL NOT NULL,
			type TEXT NOT NULL,
			due_date TEXT NOT NULL,
			recurrence TEXT NOT NULL DEFAULT 'once',
			status TEXT NOT NULL DEFAULT 'pending',
			notify_days_before INTEGER NOT NULL DEFAULT 3,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`)
	require.NoError(t, err)
	return db
}

func seedReportTransactions(t *testing.T, db *sql.DB) {
	t.Helper()
	for _, tx := range []*models.Transaction{
		{UserID: 1, Description: "Salary", Amount: 2500, Type: models.TypeIncome, Date: "2024-02-01"},
		{UserID: 1, Description: "Rent", Amount: 900, Type: models.TypeExpense, Date: "2024-02-02"},
		{UserID: 1, Description: "Groceries", Amount: 100, Type: models.TypeExpense, Date: "2024-02-10"},
		{UserID: 1, Description: "Old expense", Amount: 50, Type: models.TypeExpense, Date: "2024-01-15"},
	} {
		require.NoError(t, tx.CreateTransaction(db))
	}
}

func TestMonthlyReport(t *testing.T) {
	db := newReportTestDB(t)
	seedReportTransactions(t, db)

	svc := NewReportService(db, cache.New(time.Minute, time.Minute))
	report, err := svc.MonthlyReport(1, 2, 2024)
	require.NoError(t, err)

	assert.InDelta(t, 2500, report.Income, 0.001)
	assert.InDelta(t, 1000, report.Expenses, 0.001)
	assert.InDelta(t, 1500, report.Balance, 0.001)
	assert.Equal(t, 3, report.TotalTransactions, "January rows excluded")
}

func TestMonthlyReportEmptyMonth(t *testing.T) {
	db := newReportTestDB(t)

	svc := NewReportService(db, cache.New(time.Minute, time.Minute))
	report, err := svc.MonthlyReport(1, 6, 2024)
	require.NoError(t, err)
	assert.Zero(t, report.Income)
	assert.Zero(t, report.Expenses)
	assert.Zero(t, report.TotalTransactions)
}

func TestUserStatistics(t *testing.T) {
	db := newReportTestDB(t)
	seedReportTransactions(t, db)
	_, err := db.Exec(`INSERT INTO goals (id, user_id, title, target_amount, status) VALUES
		('g-1', 1, 'Trip', 1000, 'active'),
		('g-2', 1, 'Fund', 5000, 'completed')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO schedules (id, user_id, title, amount, type, due_date, status) VALUES
		('s-1', 1, 'Rent', 900, 'expense', '2024-03-01', 'pending')`)
	require.NoError(t, err)

	svc := NewReportService(db, cache.New(time.Minute, time.Minute))
	stats, err := svc.UserStatistics(1)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.TotalTransactions)
	assert.InDelta(t, 2500, stats.TotalIncome, 0.001)
	assert.InDelta(t, 1050, stats.TotalExpenses, 0.001)
	assert.InDelta(t, 1450, stats.CurrentBalance, 0.001)
	assert.Equal(t, 1, stats.ActiveGoals)
	assert.Equal(t, 1, stats.CompletedGoals)
	assert.Equal(t, 1, stats.PendingSchedules)
	assert.Equal(t, "2024-02", stats.BusiestMonth)
	assert.Equal(t, "None", stats.TopCategory, "no categorized rows yet")
}

func TestCategoryAnalysisPercentages(t *testing.T) {
	db := newReportTestDB(t)
	today := time.Now().Format("2006-01-02")
	for _, tx := range []*models.Transaction{
		{UserID: 1, Description: "Groceries", Amount: 75, Type: models.TypeExpense, Date: today},
		{UserID: 1, Description: "More groceries", Amount: 25, Type: models.TypeExpense, Date: today},
		{UserID: 1, Description: "Salary", Amount: 1000, Type: models.TypeIncome, Date: today},
	} {
		require.NoError(t, tx.CreateTransaction(db))
	}

	svc := NewReportService(db, cache.New(time.Minute, time.Minute))
	analysis, err := svc.CategoryAnalysis(1, 30)
	require.NoError(t, err)

	require.Len(t, analysis, 1, "income rows are excluded")
	assert.Equal(t, "Uncategorized", analysis[0].Category)
	assert.InDelta(t, 100, analysis[0].Total, 0.001)
	assert.InDelta(t, 100, analysis[0].Percentage, 0.001)
	assert.Equal(t, 2, analysis[0].TransactionCount)
}

func TestInvalidateUserCacheDropsSuffixedKeys(t *testing.T) {
	db := newReportTestDB(t)
	seedReportTransactions(t, db)

	svc := NewReportService(db, cache.New(time.Minute, time.Minute))
	_, err := svc.MonthlyReport(1, 2, 2024)
	require.NoError(t, err)

	// A new transaction lands; the cached February report is stale.
	late := &models.Transaction{UserID: 1, Description: "Late fee", Amount: 10, Type: models.TypeExpense, Date: "2024-02-28"}
	require.NoError(t, late.CreateTransaction(db))

	svc.InvalidateUserCache(1)

	report, err := svc.MonthlyReport(1, 2, 2024)
	require.NoError(t, err)
	assert.Equal(t, 4, report.TotalTransactions, "invalidation must reach period-suffixed keys")
}
