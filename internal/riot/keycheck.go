package riot

import (
	"context"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

const (
	// TFT platform status lives on the regional host, not the americas cluster
	StatusURL = "https://na1.api.riotgames.com/tft/status/v1/platform-data"

	defaultCheckTimeout = 10 * time.Second
)

// PlatformStatus is the part of the status payload the key check reads
type PlatformStatus struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// KeyChecker confirms an API key is accepted before a walk spends its budget
type KeyChecker struct {
	httpClient *http.Client
	statusURL  string
}

type KeyCheckerOption func(*KeyChecker)

func WithStatusURL(u string) KeyCheckerOption {
	return func(k *KeyChecker) {
		k.statusURL = u
	}
}

func WithCheckTimeout(d time.Duration) KeyCheckerOption {
	return func(k *KeyChecker) {
		k.httpClient.Timeout = d
	}
}

func NewKeyChecker(opts ...KeyCheckerOption) *KeyChecker {
	k := &KeyChecker{
		httpClient: &http.Client{Timeout: defaultCheckTimeout},
		statusURL:  StatusURL,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Check issues one status request with apiKey. A rejected key comes back as
// an *APIError for which IsAPIKeyError is true; any other error means the
// check itself could not complete. A 429 counts as accepted and returns an
// empty status.
func (k *KeyChecker) Check(ctx context.Context, apiKey string) (*PlatformStatus, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("key check: API key cannot be empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.statusURL, nil)
	if err != nil {
		return nil, fmt.Errorf("key check: %w", err)
	}
	req.Header.Set("X-Riot-Token", apiKey)

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("key check: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var status PlatformStatus
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			return nil, fmt.Errorf("key check: decode status: %w", err)
		}
		return &status, nil
	case http.StatusTooManyRequests:
		return &PlatformStatus{}, nil
	default:
		return nil, &APIError{Endpoint: "key check", StatusCode: resp.StatusCode}
	}
}
