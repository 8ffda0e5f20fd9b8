// Package pluggy implements a client for the Pluggy Open Finance API
// (https://api.pluggy.ai): API-key acquisition and caching, account
// listing per connected item, and paginated transaction retrieval.
package pluggy

import "time"

// Account types reported by the provider. CREDIT balances arrive with
// inverted sign and are flipped during sync.
const (
	AccountTypeBank   = "BANK"
	AccountTypeCredit = "CREDIT"
)

// SandboxOwner marks accounts from Pluggy's sandbox environment. This
// is the provider's documented convention, not a heuristic.
const SandboxOwner = "John Doe"

// Account is a bank account reachable from a connected item, as
// reported by the provider. Read-only from our side.
type Account struct {
	ID           string  `json:"id"`
	ItemID       string  `json:"itemId"`
	Name         string  `json:"name"`
	Number       string  `json:"number"`
	Type         string  `json:"type"`
	Subtype      string  `json:"subtype"`
	Balance      float64 `json:"balance"`
	CurrencyCode string  `json:"currencyCode"`
	Owner        string  `json:"owner"`
	UpdatedAt    string  `json:"updatedAt"`
}

// IsSandbox reports whether the account belongs to the provider's
// sandbox environment.
func (a Account) IsSandbox() bool {
	return a.Owner == SandboxOwner
}

// Transaction is the provider-native transaction shape. Amount is a
// signed value in the account currency: positive inflow, negative
// outflow.
type Transaction struct {
	ID          string  `json:"id"`
	AccountID   string  `json:"accountId"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	Category    string  `json:"category"`
	Type        string  `json:"type"`
	Status      string  `json:"status"`
}

// TransactionQuery selects one page of an account's transactions.
// Pagination is the caller's responsibility.
type TransactionQuery struct {
	From     string
	To       string
	PageSize int
	Page     int
}

// TransactionPage is one page of results plus the paging metadata the
// caller needs to continue.
type TransactionPage struct {
	Results    []Transaction `json:"results"`
	Total      int           `json:"total"`
	TotalPages int           `json:"totalPages"`
	Page       int           `json:"page"`
}

// Connector identifies the financial institution behind an item.
type Connector struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`
	Type     string `json:"type"`
	Country  string `json:"country"`
}

// Item is the connection metadata for one item id. Used only
// diagnostically.
type Item struct {
	ID              string    `json:"id"`
	Status          string    `json:"status"`
	ExecutionStatus string    `json:"executionStatus"`
	Connector       Connector `json:"connector"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type accountsResponse struct {
	Results []Account `json:"results"`
	Total   int       `json:"total"`
}
