package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/username/mango/backend/src/database"
	"github.com/username/mango/backend/src/logger"
	"github.com/username/mango/backend/src/models"
	"github.com/username/mango/backend/src/security/validation"
	"github.com/username/mango/backend/src/services"
	"github.com/username/mango/backend/src/utils"
)

type GoalHandler struct {
	reports *services.ReportService
}

func NewGoalHandler(reports *services.ReportService) *GoalHandler {
	return &GoalHandler{reports: reports}
}

func (h *GoalHandler) ListGoalsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	goals, err := models.ListGoals(database.DB, userID)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list goals", "error", err)
		utils.SendJSONError(w, "Failed to list goals", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, goals, http.StatusOK)
}

type goalRequest struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	TargetAmount float64 `json:"target_amount"`
	Deadline     string  `json:"deadline"`
	Status       string  `json:"status"`
}

func (h *GoalHandler) CreateGoalHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req goalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Title = validation.SanitizeText(req.Title)
	if req.Title == "" {
		utils.SendJSONError(w, "title is required", http.StatusBadRequest)
		return
	}
	if req.TargetAmount <= 0 {
		utils.SendJSONError(w, "target_amount must be positive", http.StatusBadRequest)
		return
	}

	goal := &models.Goal{
		UserID:       userID,
		Title:        req.Title,
		Description:  validation.SanitizeText(req.Description),
		TargetAmount: req.TargetAmount,
		Deadline:     req.Deadline,
	}
	if err := goal.CreateGoal(database.DB); err != nil {
		logger.FromContext(r.Context()).Error("Failed to create goal", "error", err)
		utils.SendJSONError(w, "Failed to create goal", http.StatusInternalServerError)
		return
	}

	h.reports.InvalidateUserCache(userID)
	utils.SendJSON(w, goal, http.StatusCreated)
}

func (h *GoalHandler) UpdateGoalHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req goalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Title = validation.SanitizeText(req.Title)
	if req.Title == "" {
		utils.SendJSONError(w, "title is required", http.StatusBadRequest)
		return
	}
	switch req.Status {
	case "":
		req.Status = models.GoalActive
	case models.GoalActive, models.GoalCompleted, models.GoalCancelled:
	default:
		utils.SendJSONError(w, "invalid status", http.StatusBadRequest)
		return
	}

	goal := &models.Goal{
		ID:           chi.URLParam(r, "id"),
		UserID:       userID,
		Title:        req.Title,
		Description:  validation.SanitizeText(req.Description),
		TargetAmount: req.TargetAmount,
		Deadline:     req.Deadline,
		Status:       req.Status,
	}
	if err := goal.UpdateGoal(database.DB); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.SendJSONError(w, "Goal not found", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to update goal", "id", goal.ID, "error", err)
		utils.SendJSONError(w, "Failed to update goal", http.StatusInternalServerError)
		return
	}

	h.reports.InvalidateUserCache(userID)
	utils.SendJSON(w, goal, http.StatusOK)
}

type goalProgressRequest struct {
	Delta float64 `json:"delta"`
}

// UpdateGoalProgressHandler adds (or subtracts) from the goal's
// current amount. Reaching the target flips the goal to completed.
func (h *GoalHandler) UpdateGoalProgressHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req goalProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Delta == 0 {
		utils.SendJSONError(w, "delta must be non-zero", http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	if err := models.UpdateGoalProgress(database.DB, userID, id, req.Delta); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.SendJSONError(w, "Goal not found", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to update goal progress", "id", id, "error", err)
		utils.SendJSONError(w, "Failed to update goal progress", http.StatusInternalServerError)
		return
	}

	h.reports.InvalidateUserCache(userID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *GoalHandler) DeleteGoalHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id := chi.URLParam(r, "id")
	if err := models.DeleteGoal(database.DB, userID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.SendJSONError(w, "Goal not found", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to delete goal", "id", id, "error", err)
		utils.SendJSONError(w, "Failed to delete goal", http.StatusInternalServerError)
		return
	}

	h.reports.InvalidateUserCache(userID)
	w.WriteHeader(http.StatusNoContent)
}
