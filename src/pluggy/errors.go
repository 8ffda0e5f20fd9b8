package pluggy

import "fmt"

// AuthError means the credential exchange itself failed: bad
// credentials, an unreachable auth endpoint, or a response body with no
// recognizable token field. Surfaced to users as "check your
// credentials".
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("pluggy auth failed (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("pluggy auth failed: %s", e.Message)
}

// ProviderError is any non-2xx response from an authenticated provider
// call. ResourceID carries the item or account id involved so per-item
// failures can be reported precisely.
type ProviderError struct {
	ResourceID string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.ResourceID != "" {
		return fmt.Sprintf("pluggy request failed for %s (status %d): %s", e.ResourceID, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("pluggy request failed (status %d): %s", e.StatusCode, e.Message)
}

// SyncError aborts a whole account sync: a failed or inconsistent page
// fetch mid-pagination. Pages already fetched are discarded rather than
// silently under-reporting a balance-sensitive feed.
type SyncError struct {
	AccountID string
	Page      int
	Err       error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync aborted for account %s at page %d: %v", e.AccountID, e.Page, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}
