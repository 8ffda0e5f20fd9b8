package services

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/username/mango/backend/src/logger"
	"github.com/username/mango/backend/src/models"
	"github.com/username/mango/backend/src/pluggy"
)

// Start date used for provider sandbox accounts, whose demo data
// predates any realistic cutoff.
const sandboxStartDate = "2000-01-01"

// BankIDPrefix namespaces bank-synced transaction ids away from the
// locally generated UUIDs, so the merged ledger never needs
// deduplication.
const BankIDPrefix = "bank_"

// BankSyncService resolves the accounts behind the user's connected
// items and turns the provider's raw transaction feed into the
// canonical transaction shape.
type BankSyncService struct {
	client              AggregatorClient
	pageSize            int
	amountsInMinorUnits bool
}

// BankSyncConfig tunes a BankSyncService.
type BankSyncConfig struct {
	// Transactions fetched per page. Defaults to 500.
	PageSize int
	// Set when the provider feed reports amounts in integer cents
	// instead of major units. Observed inconsistently across provider
	// revisions; never guessed from the data itself.
	AmountsInMinorUnits bool
}

func NewBankSyncService(client AggregatorClient, cfg BankSyncConfig) *BankSyncService {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 500
	}
	return &BankSyncService{
		client:              client,
		pageSize:            pageSize,
		amountsInMinorUnits: cfg.AmountsInMinorUnits,
	}
}

// ParseItemIDs splits a comma-delimited item id list, trimming
// whitespace and dropping empty entries. Duplicates are kept; supplying
// the same item twice is the caller's mistake to avoid.
func ParseItemIDs(raw string) []string {
	itemIDs := []string{}
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			itemIDs = append(itemIDs, trimmed)
		}
	}
	return itemIDs
}

// ResolvedAccounts is the outcome of a multi-item account fan-out.
// Empty Accounts with a populated Errors map means every item failed;
// empty Accounts with empty Errors means the provider genuinely has
// nothing connected. Callers must keep the two cases apart.
type ResolvedAccounts struct {
	Accounts []pluggy.Account  `json:"accounts"`
	Errors   map[string]string `json:"errors"`
}

// ResolveAccounts fetches the accounts reachable from each item id
// independently. A failure on one item never aborts the others: the
// error is recorded under that item id and processing continues.
// Results are concatenated, not deduplicated.
func (s *BankSyncService) ResolveAccounts(ctx context.Context, itemIDs []string) *ResolvedAccounts {
	resolved := &ResolvedAccounts{
		Accounts: []pluggy.Account{},
		Errors:   map[string]string{},
	}

	for _, itemID := range itemIDs {
		accounts, err := s.client.ListAccounts(ctx, itemID)
		if err != nil {
			logger.FromContext(ctx).Warn("Failed to list accounts for item", "itemID", itemID, "error", err)
			resolved.Errors[itemID] = err.Error()
			continue
		}
		logger.FromContext(ctx).Debug("Resolved accounts for item", "itemID", itemID, "count", len(accounts))
		resolved.Accounts = append(resolved.Accounts, accounts...)
	}
	return resolved
}

// SyncAccount pages through every transaction of one account since the
// cutoff date and normalizes them. Sandbox accounts (identified by the
// provider's documented owner sentinel) always sync from 2000-01-01 and
// get a diagnostic sandbox flag.
//
// Any page failure aborts the whole call with a SyncError and discards
// the pages already fetched; an incomplete feed is worse than a missing
// one for balance-sensitive data.
func (s *BankSyncService) SyncAccount(ctx context.Context, account pluggy.Account, cutoffDate string) ([]models.Transaction, error) {
	startDate := cutoffDate
	if account.IsSandbox() {
		startDate = sandboxStartDate
	}

	raw, err := s.fetchAllPages(ctx, account.ID, startDate)
	if err != nil {
		return nil, err
	}

	transactions := make([]models.Transaction, 0, len(raw))
	for _, tx := range raw {
		transactions = append(transactions, s.normalize(tx, account))
	}

	logger.FromContext(ctx).Info("Account sync complete",
		"accountID", account.ID, "transactions", len(transactions),
		"sandbox", account.IsSandbox(), "startDate", startDate)
	return transactions, nil
}

// fetchAllPages walks the provider's pagination from page 1 until the
// reported total. The provider's paging metadata is not trusted
// blindly: a response that does not advance, or that grows totalPages
// mid-walk, aborts the sync instead of looping forever.
func (s *BankSyncService) fetchAllPages(ctx context.Context, accountID, startDate string) ([]pluggy.Transaction, error) {
	var items []pluggy.Transaction
	totalPages := 0

	for page := 1; ; page++ {
		result, err := s.client.ListTransactionsPage(ctx, accountID, pluggy.TransactionQuery{
			From:     startDate,
			PageSize: s.pageSize,
			Page:     page,
		})
		if err != nil {
			return nil, &pluggy.SyncError{AccountID: accountID, Page: page, Err: err}
		}

		if result.Page != page {
			return nil, &pluggy.SyncError{AccountID: accountID, Page: page,
				Err: &pluggy.ProviderError{ResourceID: accountID, Message: "provider did not advance pagination"}}
		}
		if totalPages == 0 {
			totalPages = result.TotalPages
		} else if result.TotalPages > totalPages {
			return nil, &pluggy.SyncError{AccountID: accountID, Page: page,
				Err: &pluggy.ProviderError{ResourceID: accountID, Message: "provider reported inconsistent totalPages"}}
		}

		items = append(items, result.Results...)

		if page >= result.TotalPages {
			return items, nil
		}
	}
}

// normalize maps a provider transaction to the canonical shape:
// namespaced id, non-negative amount, direction from the sign.
func (s *BankSyncService) normalize(tx pluggy.Transaction, account pluggy.Account) models.Transaction {
	amount := decimal.NewFromFloat(tx.Amount)

	direction := models.TypeExpense
	if amount.IsPositive() {
		direction = models.TypeIncome
	}

	amount = amount.Abs()
	if s.amountsInMinorUnits {
		amount = amount.Div(decimal.NewFromInt(100))
	}
	normalized, _ := amount.Float64()

	category := tx.Category
	if category == "" {
		category = "Uncategorized"
	}

	date := tx.Date
	if len(date) > 10 {
		date = date[:10]
	}

	description := tx.Description
	if description == "" {
		description = "Bank transaction"
	}

	return models.Transaction{
		ID:                BankIDPrefix + tx.ID,
		Description:       description,
		Amount:            normalized,
		Type:              direction,
		Category:          category,
		Date:              date,
		SourceAccountID:   account.ID,
		SourceAccountName: account.Name,
		IsBankSourced:     true,
		Sandbox:           account.IsSandbox(),
	}
}

// StartingBalance converts the account's reported balance to minor
// units. CREDIT balances arrive with inverted sign from the provider
// and are flipped so debt reduces net worth.
func (s *BankSyncService) StartingBalance(account pluggy.Account) int64 {
	balance := decimal.NewFromFloat(account.Balance).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	if account.Type == pluggy.AccountTypeCredit {
		balance = -balance
	}
	return balance
}

// SyncResult is the outcome of a batch sync across every account of
// the given items. Errors is keyed by item id for resolution failures
// and by account id for sync failures.
type SyncResult struct {
	Accounts     []pluggy.Account     `json:"accounts"`
	Transactions []models.Transaction `json:"transactions"`
	Errors       map[string]string    `json:"errors"`
}

// SyncAll resolves every account behind the given item ids and syncs
// each. A SyncError on one account is fatal for that account only.
func (s *BankSyncService) SyncAll(ctx context.Context, itemIDs []string, cutoffDate string) *SyncResult {
	resolved := s.ResolveAccounts(ctx, itemIDs)

	result := &SyncResult{
		Accounts:     resolved.Accounts,
		Transactions: []models.Transaction{},
		Errors:       resolved.Errors,
	}

	for _, account := range resolved.Accounts {
		transactions, err := s.SyncAccount(ctx, account, cutoffDate)
		if err != nil {
			logger.FromContext(ctx).Warn("Account sync failed", "accountID", account.ID, "error", err)
			result.Errors[account.ID] = err.Error()
			continue
		}
		result.Transactions = append(result.Transactions, transactions...)
	}
	return result
}
