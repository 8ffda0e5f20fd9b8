package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/username/mango/backend/src/database"
	"github.com/username/mango/backend/src/logger"
	"github.com/username/mango/backend/src/models"
	"github.com/username/mango/backend/src/security/validation"
	"github.com/username/mango/backend/src/services"
	"github.com/username/mango/backend/src/utils"
)

type ScheduleHandler struct {
	reports *services.ReportService
}

func NewScheduleHandler(reports *services.ReportService) *ScheduleHandler {
	return &ScheduleHandler{reports: reports}
}

// ListSchedulesHandler lists all schedules, or a filtered view via the
// filter query parameter (upcoming, overdue). Upcoming accepts a days
// parameter, default 7.
func (h *ScheduleHandler) ListSchedulesHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var (
		schedules []models.Schedule
		err       error
	)
	switch r.URL.Query().Get("filter") {
	case "upcoming":
		days, convErr := strconv.Atoi(r.URL.Query().Get("days"))
		if convErr != nil || days <= 0 {
			days = 7
		}
		schedules, err = models.ListUpcomingSchedules(database.DB, userID, days)
	case "overdue":
		schedules, err = models.ListOverdueSchedules(database.DB, userID)
	default:
		schedules, err = models.ListSchedules(database.DB, userID)
	}
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list schedules", "error", err)
		utils.SendJSONError(w, "Failed to list schedules", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, schedules, http.StatusOK)
}

type scheduleRequest struct {
	CategoryID       string  `json:"category_id"`
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	Amount           float64 `json:"amount"`
	Type             string  `json:"type"`
	DueDate          string  `json:"due_date"`
	Recurrence       string  `json:"recurrence"`
	NotifyDaysBefore int     `json:"notify_days_before"`
}

func (req *scheduleRequest) validate() string {
	req.Title = validation.SanitizeText(req.Title)
	if req.Title == "" {
		return "title is required"
	}
	if req.Amount <= 0 {
		return "amount must be positive"
	}
	if req.Type != models.TypeIncome && req.Type != models.TypeExpense {
		return "type must be income or expense"
	}
	if req.DueDate == "" {
		return "due_date is required"
	}
	switch req.Recurrence {
	case "", models.RecurrenceOnce, models.RecurrenceWeekly, models.RecurrenceMonthly, models.RecurrenceYearly:
	default:
		return "invalid recurrence"
	}
	return ""
}

func (h *ScheduleHandler) CreateScheduleHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if msg := req.validate(); msg != "" {
		utils.SendJSONError(w, msg, http.StatusBadRequest)
		return
	}

	schedule := &models.Schedule{
		UserID:           userID,
		CategoryID:       req.CategoryID,
		Title:            req.Title,
		Description:      validation.SanitizeText(req.Description),
		Amount:           req.Amount,
		Type:             req.Type,
		DueDate:          req.DueDate,
		Recurrence:       req.Recurrence,
		NotifyDaysBefore: req.NotifyDaysBefore,
	}
	if err := schedule.CreateSchedule(database.DB); err != nil {
		logger.FromContext(r.Context()).Error("Failed to create schedule", "error", err)
		utils.SendJSONError(w, "Failed to create schedule", http.StatusInternalServerError)
		return
	}

	h.reports.InvalidateUserCache(userID)
	utils.SendJSON(w, schedule, http.StatusCreated)
}

func (h *ScheduleHandler) UpdateScheduleHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if msg := req.validate(); msg != "" {
		utils.SendJSONError(w, msg, http.StatusBadRequest)
		return
	}

	schedule := &models.Schedule{
		ID:               chi.URLParam(r, "id"),
		UserID:           userID,
		CategoryID:       req.CategoryID,
		Title:            req.Title,
		Description:      validation.SanitizeText(req.Description),
		Amount:           req.Amount,
		Type:             req.Type,
		DueDate:          req.DueDate,
		Recurrence:       req.Recurrence,
		NotifyDaysBefore: req.NotifyDaysBefore,
	}
	if err := schedule.UpdateSchedule(database.DB); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.SendJSONError(w, "Schedule not found", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to update schedule", "id", schedule.ID, "error", err)
		utils.SendJSONError(w, "Failed to update schedule", http.StatusInternalServerError)
		return
	}

	h.reports.InvalidateUserCache(userID)
	utils.SendJSON(w, schedule, http.StatusOK)
}

func (h *ScheduleHandler) MarkSchedulePaidHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id := chi.URLParam(r, "id")
	if err := models.MarkSchedulePaid(database.DB, userID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.SendJSONError(w, "Schedule not found", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to mark schedule paid", "id", id, "error", err)
		utils.SendJSONError(w, "Failed to mark schedule paid", http.StatusInternalServerError)
		return
	}

	h.reports.InvalidateUserCache(userID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ScheduleHandler) DeleteScheduleHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id := chi.URLParam(r, "id")
	if err := models.DeleteSchedule(database.DB, userID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.SendJSONError(w, "Schedule not found", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to delete schedule", "id", id, "error", err)
		utils.SendJSONError(w, "Failed to delete schedule", http.StatusInternalServerError)
		return
	}

	h.reports.InvalidateUserCache(userID)
	w.WriteHeader(http.StatusNoContent)
}
