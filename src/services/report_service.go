package services

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// MonthlyReport summarizes one calendar month of manual transactions.
type MonthlyReport struct {
	Income            float64 `json:"income"`
	Expenses          float64 `json:"expenses"`
	Balance           float64 `json:"balance"`
	TotalTransactions int     `json:"total_transactions"`
}

// UserStatistics is the profile-page aggregate.
type UserStatistics struct {
	TotalTransactions int     `json:"total_transactions"`
	TotalIncome       float64 `json:"total_income"`
	TotalExpenses     float64 `json:"total_expenses"`
	CurrentBalance    float64 `json:"current_balance"`
	ActiveGoals       int     `json:"active_goals"`
	CompletedGoals    int     `json:"completed_goals"`
	PendingSchedules  int     `json:"pending_schedules"`
	TopCategory       string  `json:"top_category"`
	BusiestMonth      string  `json:"busiest_month"`
}

// CategorySpending is one row of the category-analysis report.
type CategorySpending struct {
	Category         string  `json:"category"`
	Total            float64 `json:"total"`
	Percentage       float64 `json:"percentage"`
	TransactionCount int     `json:"transaction_count"`
}

// ReportService computes dashboard aggregates over the user's manual
// transactions, with a short-lived cache in front of the queries.
type ReportService struct {
	db    *sql.DB
	cache *cache.Cache
}

func NewReportService(db *sql.DB, reportCache *cache.Cache) *ReportService {
	return &ReportService{db: db, cache: reportCache}
}

// InvalidateUserCache drops a user's cached reports after any write.
// Monthly and category keys carry period suffixes, so this sweeps by
// prefix instead of deleting fixed keys.
func (s *ReportService) InvalidateUserCache(userID int64) {
	s.cache.Delete(fmt.Sprintf("stats:%d", userID))

	prefixes := []string{
		fmt.Sprintf("monthly:%d:", userID),
		fmt.Sprintf("catanalysis:%d:", userID),
	}
	for key := range s.cache.Items() {
		for _, prefix := range prefixes {
			if strings.HasPrefix(key, prefix) {
				s.cache.Delete(key)
				break
			}
		}
	}
}

// MonthlyReport returns income, expenses and balance for one month.
func (s *ReportService) MonthlyReport(userID int64, month, year int) (*MonthlyReport, error) {
	key := fmt.Sprintf("monthly:%d:%04d-%02d", userID, year, month)
	if cached, found := s.cache.Get(key); found {
		return cached.(*MonthlyReport), nil
	}

	prefix := fmt.Sprintf("%04d-%02d", year, month)
	report := &MonthlyReport{}
	err := s.db.QueryRow(`
		SELECT COALESCE(SUM(CASE WHEN type = 'income' THEN amount ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN type = 'expense' THEN amount ELSE 0 END), 0),
		       COUNT(*)
		FROM transactions
		WHERE user_id = ? AND substr(date, 1, 7) = ?`, userID, prefix).
		Scan(&report.Income, &report.Expenses, &report.TotalTransactions)
	if err != nil {
		return nil, fmt.Errorf("querying monthly report: %w", err)
	}
	report.Balance = report.Income - report.Expenses

	s.cache.Set(key, report, cache.DefaultExpiration)
	return report, nil
}

// UserStatistics aggregates the user's whole history.
func (s *ReportService) UserStatistics(userID int64) (*UserStatistics, error) {
	key := fmt.Sprintf("stats:%d", userID)
	if cached, found := s.cache.Get(key); found {
		return cached.(*UserStatistics), nil
	}

	stats := &UserStatistics{TopCategory: "None", BusiestMonth: "None"}

	err := s.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN type = 'income' THEN amount ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN type = 'expense' THEN amount ELSE 0 END), 0)
		FROM transactions WHERE user_id = ?`, userID).
		Scan(&stats.TotalTransactions, &stats.TotalIncome, &stats.TotalExpenses)
	if err != nil {
		return nil, fmt.Errorf("querying transaction totals: %w", err)
	}
	stats.CurrentBalance = stats.TotalIncome - stats.TotalExpenses

	err = s.db.QueryRow(`
		SELECT COALESCE(SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0)
		FROM goals WHERE user_id = ?`, userID).
		Scan(&stats.ActiveGoals, &stats.CompletedGoals)
	if err != nil {
		return nil, fmt.Errorf("querying goal counts: %w", err)
	}

	err = s.db.QueryRow(`
		SELECT COUNT(*) FROM schedules WHERE user_id = ? AND status = 'pending'`, userID).
		Scan(&stats.PendingSchedules)
	if err != nil {
		return nil, fmt.Errorf("querying pending schedules: %w", err)
	}

	var topCategory sql.NullString
	err = s.db.QueryRow(`
		SELECT c.name FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = ?
		GROUP BY c.name ORDER BY COUNT(*) DESC LIMIT 1`, userID).Scan(&topCategory)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("querying top category: %w", err)
	}
	if topCategory.Valid {
		stats.TopCategory = topCategory.String
	}

	var busiestMonth sql.NullString
	err = s.db.QueryRow(`
		SELECT substr(date, 1, 7) FROM transactions
		WHERE user_id = ?
		GROUP BY substr(date, 1, 7) ORDER BY COUNT(*) DESC LIMIT 1`, userID).Scan(&busiestMonth)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("querying busiest month: %w", err)
	}
	if busiestMonth.Valid {
		stats.BusiestMonth = busiestMonth.String
	}

	s.cache.Set(key, stats, cache.DefaultExpiration)
	return stats, nil
}

// CategoryAnalysis breaks down expense spending by category over the
// trailing period.
func (s *ReportService) CategoryAnalysis(userID int64, periodDays int) ([]CategorySpending, error) {
	if periodDays <= 0 {
		periodDays = 30
	}
	key := fmt.Sprintf("catanalysis:%d:%d", userID, periodDays)
	if cached, found := s.cache.Get(key); found {
		return cached.([]CategorySpending), nil
	}

	since := time.Now().AddDate(0, 0, -periodDays).Format("2006-01-02")
	rows, err := s.db.Query(`
		SELECT COALESCE(c.name, 'Uncategorized'), SUM(t.amount), COUNT(*)
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = ? AND t.type = 'expense' AND t.date >= ?
		GROUP BY COALESCE(c.name, 'Uncategorized')
		ORDER BY SUM(t.amount) DESC`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("querying category analysis: %w", err)
	}
	defer rows.Close()

	analysis := []CategorySpending{}
	var grandTotal float64
	for rows.Next() {
		var cs CategorySpending
		if err := rows.Scan(&cs.Category, &cs.Total, &cs.TransactionCount); err != nil {
			return nil, fmt.Errorf("scanning category analysis: %w", err)
		}
		grandTotal += cs.Total
		analysis = append(analysis, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if grandTotal > 0 {
		for i := range analysis {
			analysis[i].Percentage = analysis[i].Total / grandTotal * 100
		}
	}

	s.cache.Set(key, analysis, cache.DefaultExpiration)
	return analysis, nil
}
