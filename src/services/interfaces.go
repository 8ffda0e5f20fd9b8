package services

import (
	"context"
	"time"

	"github.com/username/mango/backend/src/pluggy"
)

// Cache tuning shared by the cached services.
const (
	DefaultCacheExpiration = 5 * time.Minute
	CacheCleanupInterval   = 10 * time.Minute
)

// AggregatorClient is the provider surface BankSyncService needs. The
// pluggy.Client satisfies it; tests substitute a fake.
type AggregatorClient interface {
	ListAccounts(ctx context.Context, itemID string) ([]pluggy.Account, error)
	GetAccount(ctx context.Context, accountID string) (*pluggy.Account, error)
	ListTransactionsPage(ctx context.Context, accountID string, q pluggy.TransactionQuery) (*pluggy.TransactionPage, error)
	GetItem(ctx context.Context, itemID string) (*pluggy.Item, error)
}
