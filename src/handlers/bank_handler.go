package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/username/mango/backend/src/config"
	"github.com/username/mango/backend/src/database"
	"github.com/username/mango/backend/src/logger"
	"github.com/username/mango/backend/src/models"
	"github.com/username/mango/backend/src/pluggy"
	"github.com/username/mango/backend/src/security/validation"
	"github.com/username/mango/backend/src/services"
	"github.com/username/mango/backend/src/utils"
)

// BankHandler exposes the Open Finance surface: connection management,
// account resolution, transaction sync and the merged ledger.
type BankHandler struct {
	client   services.AggregatorClient
	bankSync *services.BankSyncService
	ledger   *services.LedgerService
}

func NewBankHandler(client services.AggregatorClient, bankSync *services.BankSyncService, ledger *services.LedgerService) *BankHandler {
	return &BankHandler{client: client, bankSync: bankSync, ledger: ledger}
}

func (h *BankHandler) ListConnectionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	connections, err := models.ListBankConnections(database.DB, userID)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list bank connections", "error", err)
		utils.SendJSONError(w, "Failed to list bank connections", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, connections, http.StatusOK)
}

type createConnectionRequest struct {
	ItemID      string `json:"item_id"`
	Institution string `json:"institution"`
}

func (h *BankHandler) CreateConnectionHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req createConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.ItemID = validation.SanitizeText(req.ItemID)
	if req.ItemID == "" {
		utils.SendJSONError(w, "item_id is required", http.StatusBadRequest)
		return
	}

	connection := &models.BankConnection{
		UserID:      userID,
		ItemID:      req.ItemID,
		Institution: validation.SanitizeText(req.Institution),
	}
	if err := connection.CreateBankConnection(database.DB); err != nil {
		logger.FromContext(r.Context()).Error("Failed to create bank connection", "itemID", req.ItemID, "error", err)
		utils.SendJSONError(w, "Failed to create bank connection", http.StatusInternalServerError)
		return
	}

	// The cached sync no longer covers the new item.
	h.ledger.InvalidateBankCache(userID)
	utils.SendJSON(w, connection, http.StatusCreated)
}

func (h *BankHandler) DeleteConnectionHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id := chi.URLParam(r, "id")
	if err := models.DeleteBankConnection(database.DB, userID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.SendJSONError(w, "Bank connection not found", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to delete bank connection", "id", id, "error", err)
		utils.SendJSONError(w, "Failed to delete bank connection", http.StatusInternalServerError)
		return
	}

	h.ledger.InvalidateBankCache(userID)
	w.WriteHeader(http.StatusNoContent)
}

// accountSummary decorates a resolved account with the derived fields
// the frontend renders directly.
type accountSummary struct {
	pluggy.Account
	StartingBalance int64 `json:"starting_balance"`
	Sandbox         bool  `json:"sandbox"`
}

type resolveAccountsResponse struct {
	Accounts []accountSummary  `json:"accounts"`
	Errors   map[string]string `json:"errors"`
}

// ResolveAccountsHandler fans out over the item ids in the item_ids
// query parameter (comma-separated), or over every stored connection
// when the parameter is absent. Items that fail are reported in the
// errors map without aborting the rest.
func (h *BankHandler) ResolveAccountsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	itemIDs := services.ParseItemIDs(r.URL.Query().Get("item_ids"))
	if len(itemIDs) == 0 {
		stored, err := models.ConnectionItemIDs(database.DB, userID)
		if err != nil {
			logger.FromContext(r.Context()).Error("Failed to load connection item ids", "error", err)
			utils.SendJSONError(w, "Failed to load bank connections", http.StatusInternalServerError)
			return
		}
		itemIDs = stored
	}

	resolved := h.bankSync.ResolveAccounts(r.Context(), itemIDs)

	resp := resolveAccountsResponse{
		Accounts: make([]accountSummary, 0, len(resolved.Accounts)),
		Errors:   resolved.Errors,
	}
	for _, account := range resolved.Accounts {
		resp.Accounts = append(resp.Accounts, accountSummary{
			Account:         account,
			StartingBalance: h.bankSync.StartingBalance(account),
			Sandbox:         account.IsSandbox(),
		})
	}
	utils.SendJSON(w, resp, http.StatusOK)
}

// SyncHandler runs a full resolve-and-sync pass over the user's
// connected items and returns the normalized transactions without
// persisting them.
func (h *BankHandler) SyncHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	itemIDs := services.ParseItemIDs(r.URL.Query().Get("item_ids"))
	if len(itemIDs) == 0 {
		stored, err := models.ConnectionItemIDs(database.DB, userID)
		if err != nil {
			logger.FromContext(r.Context()).Error("Failed to load connection item ids", "error", err)
			utils.SendJSONError(w, "Failed to load bank connections", http.StatusInternalServerError)
			return
		}
		itemIDs = stored
	}
	if len(itemIDs) == 0 {
		utils.SendJSON(w, services.SyncResult{
			Accounts:     []pluggy.Account{},
			Transactions: []models.Transaction{},
			Errors:       map[string]string{},
		}, http.StatusOK)
		return
	}

	cutoffDate := time.Now().AddDate(0, -config.Cfg.SyncCutoffMonths, 0).Format("2006-01-02")
	result := h.bankSync.SyncAll(r.Context(), itemIDs, cutoffDate)
	utils.SendJSON(w, result, http.StatusOK)
}

// ItemStatusHandler reports the connection health of one item,
// straight from the provider. Diagnostic only.
func (h *BankHandler) ItemStatusHandler(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	item, err := h.client.GetItem(r.Context(), itemID)
	if err != nil {
		var providerErr *pluggy.ProviderError
		if errors.As(err, &providerErr) && providerErr.StatusCode == http.StatusNotFound {
			utils.SendJSONError(w, "Item not found", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to fetch item status", "itemID", itemID, "error", err)
		utils.SendJSONError(w, "Failed to fetch item status", http.StatusBadGateway)
		return
	}
	utils.SendJSON(w, item, http.StatusOK)
}

// LedgerHandler returns the merged manual+bank ledger. Pass
// refresh=true to bypass the short-lived bank sync cache.
func (h *BankHandler) LedgerHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	refresh := r.URL.Query().Get("refresh") == "true"
	view, err := h.ledger.Ledger(r.Context(), userID, refresh)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to build ledger", "error", err)
		utils.SendJSONError(w, "Failed to build ledger", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, view, http.StatusOK)
}
