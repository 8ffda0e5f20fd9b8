package pluggy

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// authThen wraps a handler, answering /auth itself so tests only
// describe the API call under test.
func authThen(handler http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth" {
			fmt.Fprint(w, `{"apiKey":"test-key","expiresIn":7200}`)
			return
		}
		handler(w, r)
	})
}

func TestListAccountsSendsAPIKeyHeader(t *testing.T) {
	client, _ := newTestClient(t, authThen(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-API-KEY"))
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "item-1", r.URL.Query().Get("itemId"))
		fmt.Fprint(w, `{"results":[{"id":"acc-1","itemId":"item-1","name":"Checking","type":"BANK","balance":1234.56}],"total":1}`)
	}))

	accounts, err := client.ListAccounts(context.Background(), "item-1")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "acc-1", accounts[0].ID)
	assert.Equal(t, "BANK", accounts[0].Type)
	assert.InDelta(t, 1234.56, accounts[0].Balance, 0.001)
}

func TestListAccountsEmptyResult(t *testing.T) {
	client, _ := newTestClient(t, authThen(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[],"total":0}`)
	}))

	accounts, err := client.ListAccounts(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestListAccountsProviderFailure(t *testing.T) {
	client, _ := newTestClient(t, authThen(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"item not found"}`, http.StatusNotFound)
	}))

	_, err := client.ListAccounts(context.Background(), "item-missing")
	var providerErr *ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, http.StatusNotFound, providerErr.StatusCode)
	assert.Equal(t, "item-missing", providerErr.ResourceID)
	assert.Contains(t, providerErr.Error(), "item not found")
}

func TestGetAccountEmptyBody(t *testing.T) {
	client, _ := newTestClient(t, authThen(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))

	_, err := client.GetAccount(context.Background(), "acc-1")
	var providerErr *ProviderError
	require.ErrorAs(t, err, &providerErr)
}

func TestListTransactionsPageQueryAndDefaults(t *testing.T) {
	client, _ := newTestClient(t, authThen(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "acc-1", q.Get("accountId"))
		assert.Equal(t, "2024-01-01", q.Get("from"))
		assert.Equal(t, "500", q.Get("pageSize"))
		assert.Equal(t, "1", q.Get("page"))
		// No paging metadata in the body at all.
		fmt.Fprint(w, `{"results":[{"id":"tx-1","amount":-10.5,"date":"2024-02-03T12:00:00.000Z"}],"total":1}`)
	}))

	page, err := client.ListTransactionsPage(context.Background(), "acc-1", TransactionQuery{
		From:     "2024-01-01",
		PageSize: 500,
		Page:     1,
	})
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, 1, page.TotalPages, "missing totalPages defaults to 1")
	assert.Equal(t, 1, page.Page, "missing page defaults to 1")
}

func TestGetItem(t *testing.T) {
	client, _ := newTestClient(t, authThen(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/items/item-1", r.URL.Path)
		fmt.Fprint(w, `{"id":"item-1","status":"UPDATED","connector":{"id":201,"name":"Sandbox Bank"}}`)
	}))

	item, err := client.GetItem(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, "UPDATED", item.Status)
	assert.Equal(t, "Sandbox Bank", item.Connector.Name)
}

func TestAuthFailurePropagatesToAPICalls(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"bad credentials"}`, http.StatusUnauthorized)
	}))

	_, err := client.ListAccounts(context.Background(), "item-1")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestReadProviderMessageFallsBackToRawBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message field", `{"message":"rate limited"}`, "rate limited"},
		{"error field", `{"error":"boom"}`, "boom"},
		{"plain text", `gateway timeout`, "gateway timeout"},
		{"empty", ``, "unknown provider error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, authThen(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				fmt.Fprint(w, tt.body)
			}))
			_, err := client.ListAccounts(context.Background(), "item-1")
			var providerErr *ProviderError
			require.ErrorAs(t, err, &providerErr)
			assert.Contains(t, providerErr.Message, tt.want)
		})
	}
}

func TestIsSandbox(t *testing.T) {
	assert.True(t, Account{Owner: "John Doe"}.IsSandbox())
	assert.False(t, Account{Owner: "Jane Roe"}.IsSandbox())
	assert.False(t, Account{}.IsSandbox())
}
