package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/username/mango/backend/src/database"
	"github.com/username/mango/backend/src/logger"
	"github.com/username/mango/backend/src/models"
	"github.com/username/mango/backend/src/security/validation"
	"github.com/username/mango/backend/src/services"
	"github.com/username/mango/backend/src/utils"
)

// TransactionHandler covers the manually entered transaction CRUD.
// Bank-synced rows are read-only and never pass through here.
type TransactionHandler struct {
	reports *services.ReportService
}

func NewTransactionHandler(reports *services.ReportService) *TransactionHandler {
	return &TransactionHandler{reports: reports}
}

type transactionRequest struct {
	CategoryID  string  `json:"category_id"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
	Date        string  `json:"date"`
}

func (req *transactionRequest) validate() string {
	req.Description = validation.SanitizeText(req.Description)
	if req.Description == "" {
		return "description is required"
	}
	if req.Amount <= 0 {
		return "amount must be positive"
	}
	if req.Type != models.TypeIncome && req.Type != models.TypeExpense {
		return "type must be income or expense"
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		return "date must be YYYY-MM-DD"
	}
	return ""
}

func (h *TransactionHandler) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	transactions, err := models.ListTransactions(database.DB, userID)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list transactions", "error", err)
		utils.SendJSONError(w, "Failed to list transactions", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, transactions, http.StatusOK)
}

func (h *TransactionHandler) CreateTransactionHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if msg := req.validate(); msg != "" {
		utils.SendJSONError(w, msg, http.StatusBadRequest)
		return
	}

	tx := &models.Transaction{
		UserID:      userID,
		CategoryID:  req.CategoryID,
		Description: req.Description,
		Amount:      req.Amount,
		Type:        req.Type,
		Date:        req.Date,
	}
	if err := tx.CreateTransaction(database.DB); err != nil {
		logger.FromContext(r.Context()).Error("Failed to create transaction", "error", err)
		utils.SendJSONError(w, "Failed to create transaction", http.StatusInternalServerError)
		return
	}

	h.reports.InvalidateUserCache(userID)
	utils.SendJSON(w, tx, http.StatusCreated)
}

func (h *TransactionHandler) UpdateTransactionHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if msg := req.validate(); msg != "" {
		utils.SendJSONError(w, msg, http.StatusBadRequest)
		return
	}

	tx := &models.Transaction{
		ID:          chi.URLParam(r, "id"),
		UserID:      userID,
		CategoryID:  req.CategoryID,
		Description: req.Description,
		Amount:      req.Amount,
		Type:        req.Type,
		Date:        req.Date,
	}
	if err := tx.UpdateTransaction(database.DB); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.SendJSONError(w, "Transaction not found", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to update transaction", "id", tx.ID, "error", err)
		utils.SendJSONError(w, "Failed to update transaction", http.StatusInternalServerError)
		return
	}

	h.reports.InvalidateUserCache(userID)
	utils.SendJSON(w, tx, http.StatusOK)
}

func (h *TransactionHandler) DeleteTransactionHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id := chi.URLParam(r, "id")
	if err := models.DeleteTransaction(database.DB, userID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.SendJSONError(w, "Transaction not found", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to delete transaction", "id", id, "error", err)
		utils.SendJSONError(w, "Failed to delete transaction", http.StatusInternalServerError)
		return
	}

	h.reports.InvalidateUserCache(userID)
	w.WriteHeader(http.StatusNoContent)
}
