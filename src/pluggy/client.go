package pluggy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

const defaultTimeout = 30 * time.Second

// Config carries everything needed to talk to the aggregator for one
// credential pair.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Client is a Pluggy API client scoped to one credential pair. It is
// constructed per request/session and passed down explicitly; there is
// deliberately no package-level shared instance, so credentials can
// never bleed across users.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	clientID     string
	clientSecret string

	mu           sync.Mutex
	apiKey       string
	apiKeyExpiry time.Time
	now          func() time.Time
}

// NewClient creates a Pluggy API client. The API key is acquired
// lazily on the first authenticated call.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.pluggy.ai"
	}

	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      baseURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		now:          time.Now,
	}
}

// ListAccounts returns the accounts reachable from one connected item.
// An empty result is valid and is not an error.
func (c *Client) ListAccounts(ctx context.Context, itemID string) ([]Account, error) {
	query := url.Values{}
	query.Set("itemId", itemID)

	var resp accountsResponse
	if err := c.get(ctx, "/accounts", query, itemID, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// GetAccount fetches a single account by id.
func (c *Client) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	var account Account
	if err := c.get(ctx, "/accounts/"+accountID, nil, accountID, &account); err != nil {
		return nil, err
	}
	if account.ID == "" {
		return nil, &ProviderError{ResourceID: accountID, StatusCode: http.StatusOK, Message: "empty account body"}
	}
	return &account, nil
}

// ListTransactionsPage fetches one page of an account's transactions.
// Missing paging metadata defaults to a single page, matching the
// provider's behavior for small result sets.
func (c *Client) ListTransactionsPage(ctx context.Context, accountID string, q TransactionQuery) (*TransactionPage, error) {
	query := url.Values{}
	query.Set("accountId", accountID)
	if q.From != "" {
		query.Set("from", q.From)
	}
	if q.To != "" {
		query.Set("to", q.To)
	}
	if q.PageSize > 0 {
		query.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}

	var page TransactionPage
	if err := c.get(ctx, "/transactions", query, accountID, &page); err != nil {
		return nil, err
	}
	if page.TotalPages == 0 {
		page.TotalPages = 1
	}
	if page.Page == 0 {
		page.Page = 1
	}
	return &page, nil
}

// GetItem fetches connection metadata for one item id.
func (c *Client) GetItem(ctx context.Context, itemID string) (*Item, error) {
	var item Item
	if err := c.get(ctx, "/items/"+itemID, nil, itemID, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// get performs an authenticated GET and decodes the JSON body into out.
// All authenticated Pluggy calls carry the API key in the X-API-KEY
// header; this is the provider's contract, not a bearer scheme.
func (c *Client) get(ctx context.Context, path string, query url.Values, resourceID string, out any) error {
	token, err := c.Token(ctx)
	if err != nil {
		return err
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-KEY", token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport failures (timeouts included) surface as provider errors.
		return &ProviderError{ResourceID: resourceID, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ProviderError{
			ResourceID: resourceID,
			StatusCode: resp.StatusCode,
			Message:    readProviderMessage(resp.Body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ProviderError{ResourceID: resourceID, StatusCode: resp.StatusCode, Message: fmt.Sprintf("unparseable response body: %v", err)}
	}
	return nil
}

// readProviderMessage extracts the provider's message/error field from
// an error body when it is parseable JSON, otherwise the raw text.
func readProviderMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return "unknown provider error"
	}

	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	return string(raw)
}
