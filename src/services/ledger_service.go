package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/mango/backend/src/logger"
	"github.com/username/mango/backend/src/models"
)

// Merge unions manually entered and bank-synced transactions into one
// view, sorted by date descending (stable, so ties keep insertion
// order). Pure function; no deduplication. The two id namespaces are
// disjoint by construction, and a manual row duplicating a bank row is
// documented behavior, not something to silently reconcile.
func Merge(local, bankSynced []models.Transaction) []models.Transaction {
	merged := make([]models.Transaction, 0, len(local)+len(bankSynced))
	merged = append(merged, local...)
	merged = append(merged, bankSynced...)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Date > merged[j].Date
	})
	return merged
}

// LedgerView is the merged ledger plus the per-item/per-account sync
// errors, so the caller can tell "nothing connected" apart from
// "everything failed".
type LedgerView struct {
	Transactions []models.Transaction `json:"transactions"`
	Errors       map[string]string    `json:"errors"`
}

// LedgerService recomputes the user's merged ledger on each read.
// Bank-synced rows are never persisted; they live in a short-lived
// in-memory cache only, so a page reload does not refetch the provider.
type LedgerService struct {
	db        *sql.DB
	bankSync  *BankSyncService
	bankCache *cache.Cache
	cutoff    time.Duration
}

func NewLedgerService(db *sql.DB, bankSync *BankSyncService, bankCache *cache.Cache, cutoffMonths int) *LedgerService {
	if cutoffMonths <= 0 {
		cutoffMonths = 6
	}
	return &LedgerService{
		db:        db,
		bankSync:  bankSync,
		bankCache: bankCache,
		cutoff:    time.Duration(cutoffMonths) * 30 * 24 * time.Hour,
	}
}

func (s *LedgerService) cacheKey(userID int64) string {
	return fmt.Sprintf("banksync:%d", userID)
}

// InvalidateBankCache drops the cached bank rows for one user, forcing
// the next ledger read to sync from the provider.
func (s *LedgerService) InvalidateBankCache(userID int64) {
	s.bankCache.Delete(s.cacheKey(userID))
}

// Ledger returns the merged ledger for a user: manual rows from the
// database unioned with bank rows synced from the provider through the
// user's stored connections. When refresh is false, a recent sync
// result is reused from cache.
func (s *LedgerService) Ledger(ctx context.Context, userID int64, refresh bool) (*LedgerView, error) {
	local, err := models.ListTransactions(s.db, userID)
	if err != nil {
		return nil, fmt.Errorf("loading local transactions: %w", err)
	}

	itemIDs, err := models.ConnectionItemIDs(s.db, userID)
	if err != nil {
		return nil, fmt.Errorf("loading bank connections: %w", err)
	}

	if len(itemIDs) == 0 {
		// Nothing connected; a plain manual-only ledger, no errors.
		return &LedgerView{Transactions: Merge(local, nil), Errors: map[string]string{}}, nil
	}

	syncResult := s.cachedSync(ctx, userID, itemIDs, refresh)
	return &LedgerView{
		Transactions: Merge(local, syncResult.Transactions),
		Errors:       syncResult.Errors,
	}, nil
}

func (s *LedgerService) cachedSync(ctx context.Context, userID int64, itemIDs []string, refresh bool) *SyncResult {
	key := s.cacheKey(userID)
	if !refresh {
		if cached, found := s.bankCache.Get(key); found {
			return cached.(*SyncResult)
		}
	}

	cutoffDate := time.Now().Add(-s.cutoff).Format("2006-01-02")
	result := s.bankSync.SyncAll(ctx, itemIDs, cutoffDate)

	// Only a fully clean sync is worth caching; partial results would
	// hide per-item failures from the next read.
	if len(result.Errors) == 0 {
		s.bankCache.Set(key, result, cache.DefaultExpiration)
	} else {
		logger.FromContext(ctx).Warn("Bank sync finished with errors, skipping cache",
			"userID", userID, "errorCount", len(result.Errors))
	}
	return result
}
