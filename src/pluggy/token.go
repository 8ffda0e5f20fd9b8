package pluggy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// Renew the API key this long before its actual expiry.
	tokenExpiryMargin = 5 * time.Minute
	// TTL assumed when the provider omits expiresIn.
	defaultTokenTTL = 7200 * time.Second
)

type authRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

// The provider has been observed using inconsistent field names for
// both the token and its TTL across API revisions.
type authResponse struct {
	APIKey           string `json:"apiKey"`
	AccessToken      string `json:"accessToken"`
	AccessTokenSnake string `json:"access_token"`
	Token            string `json:"token"`
	ExpiresIn        int64  `json:"expiresIn"`
	ExpiresInSnake   int64  `json:"expires_in"`
}

func (r authResponse) token() string {
	for _, candidate := range []string{r.AccessToken, r.AccessTokenSnake, r.Token, r.APIKey} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

func (r authResponse) ttl() time.Duration {
	if r.ExpiresIn > 0 {
		return time.Duration(r.ExpiresIn) * time.Second
	}
	if r.ExpiresInSnake > 0 {
		return time.Duration(r.ExpiresInSnake) * time.Second
	}
	return defaultTokenTTL
}

// Token returns a valid API key, performing a credential exchange only
// when the cached key is missing or inside the expiry margin. Access is
// serialized so concurrent callers share a single in-flight auth
// request. No retry is attempted; callers decide whether to retry.
func (c *Client) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.apiKey != "" && c.now().Before(c.apiKeyExpiry.Add(-tokenExpiryMargin)) {
		return c.apiKey, nil
	}

	body, err := json.Marshal(authRequest{ClientID: c.clientID, ClientSecret: c.clientSecret})
	if err != nil {
		return "", fmt.Errorf("failed to marshal auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &AuthError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return "", &AuthError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var authResp authResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return "", &AuthError{Message: fmt.Sprintf("unparseable auth response: %v", err)}
	}

	token := authResp.token()
	if token == "" {
		return "", &AuthError{Message: "no recognizable token field in auth response"}
	}

	c.apiKey = token
	c.apiKeyExpiry = c.now().Add(authResp.ttl())
	return c.apiKey, nil
}

// InvalidateToken drops the cached API key so the next call performs a
// fresh credential exchange.
func (c *Client) InvalidateToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiKey = ""
	c.apiKeyExpiry = time.Time{}
}
