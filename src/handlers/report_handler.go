package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/username/mango/backend/src/logger"
	"github.com/username/mango/backend/src/services"
	"github.com/username/mango/backend/src/utils"
)

type ReportHandler struct {
	reports *services.ReportService
}

func NewReportHandler(reports *services.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// MonthlyReportHandler returns income/expense totals for the requested
// month and year query parameters, defaulting to the current month.
func (h *ReportHandler) MonthlyReportHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	now := time.Now()
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		month = int(now.Month())
	}
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 1970 {
		year = now.Year()
	}

	report, err := h.reports.MonthlyReport(userID, month, year)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to build monthly report", "error", err)
		utils.SendJSONError(w, "Failed to build monthly report", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, report, http.StatusOK)
}

func (h *ReportHandler) StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	stats, err := h.reports.UserStatistics(userID)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to build statistics", "error", err)
		utils.SendJSONError(w, "Failed to build statistics", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, stats, http.StatusOK)
}

// CategoryAnalysisHandler breaks down spending per category over the
// trailing period_days window, default 30.
func (h *ReportHandler) CategoryAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	periodDays, err := strconv.Atoi(r.URL.Query().Get("period_days"))
	if err != nil || periodDays <= 0 {
		periodDays = 30
	}

	analysis, err := h.reports.CategoryAnalysis(userID, periodDays)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to build category analysis", "error", err)
		utils.SendJSONError(w, "Failed to build category analysis", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, analysis, http.StatusOK)
}
