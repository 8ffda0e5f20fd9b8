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
	"github.com/username/mango/backend/src/utils"
)

type CategoryHandler struct{}

func NewCategoryHandler() *CategoryHandler {
	return &CategoryHandler{}
}

func (h *CategoryHandler) ListCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	categories, err := models.ListCategories(database.DB, userID)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list categories", "error", err)
		utils.SendJSONError(w, "Failed to list categories", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, categories, http.StatusOK)
}

type categoryRequest struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

func (h *CategoryHandler) CreateCategoryHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Name = validation.SanitizeText(req.Name)
	if req.Name == "" {
		utils.SendJSONError(w, "name is required", http.StatusBadRequest)
		return
	}
	if req.Type != models.TypeIncome && req.Type != models.TypeExpense {
		utils.SendJSONError(w, "type must be income or expense", http.StatusBadRequest)
		return
	}

	category := &models.Category{
		UserID: userID,
		Name:   req.Name,
		Type:   req.Type,
		Color:  validation.SanitizeText(req.Color),
		Icon:   validation.SanitizeText(req.Icon),
	}
	if err := category.CreateCategory(database.DB); err != nil {
		logger.FromContext(r.Context()).Error("Failed to create category", "error", err)
		utils.SendJSONError(w, "Failed to create category", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, category, http.StatusCreated)
}

func (h *CategoryHandler) DeleteCategoryHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id := chi.URLParam(r, "id")
	if err := models.DeleteCategory(database.DB, userID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.SendJSONError(w, "Category not found", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to delete category", "id", id, "error", err)
		utils.SendJSONError(w, "Failed to delete category", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
