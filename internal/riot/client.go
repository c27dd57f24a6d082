package riot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

const (
	// API base URL (TFT match and account data is served from the americas cluster)
	AmericasBaseURL = "https://americas.api.riotgames.com"

	// Rate limits for dev key (using conservative values to be safe)
	requestsPerSecond = 15 // Actual: 20
	requestsPer2Min   = 90 // Actual: 100

	defaultHTTPTimeout = 30 * time.Second
)

// Client is a rate-limited Riot API client for the TFT endpoints
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	retry      RetryPolicy

	// Client-side pacing, nil when disabled
	shortWindow *rate.Limiter
	longWindow  *rate.Limiter
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at a different host (useful for testing)
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRetryPolicy sets how 429 responses are retried
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) {
		c.retry = p
	}
}

// WithRateLimits sets client-side pacing. Zero disables the matching window.
func WithRateLimits(perSecond, per2Min int) Option {
	return func(c *Client) {
		c.shortWindow = nil
		c.longWindow = nil
		if perSecond > 0 {
			c.shortWindow = rate.NewLimiter(rate.Limit(perSecond), perSecond)
		}
		if per2Min > 0 {
			c.longWindow = rate.NewLimiter(rate.Every(2*time.Minute/time.Duration(per2Min)), per2Min)
		}
	}
}

// NewClient creates a new Riot API client for the given key
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("riot client: API key cannot be empty")
	}

	c := &Client{
		apiKey:  apiKey,
		baseURL: AmericasBaseURL,
		httpClient: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
		retry: DefaultRetryPolicy(),
	}
	WithRateLimits(requestsPerSecond, requestsPer2Min)(c)

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// KeyHint returns the key with its middle elided, for logs.
func KeyHint(apiKey string) string {
	if len(apiKey) <= 12 {
		return "***"
	}
	return apiKey[:8] + "..." + apiKey[len(apiKey)-4:]
}

// waitForRateLimit blocks until both pacing windows admit another request
func (c *Client) waitForRateLimit(ctx context.Context) error {
	if c.shortWindow != nil {
		if err := c.shortWindow.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}
	if c.longWindow != nil {
		if err := c.longWindow.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}
	return nil
}

// doRequest issues a GET for path, retrying the identical request on 429
// according to the client's RetryPolicy, and decodes a 200 body into result.
func (c *Client) doRequest(ctx context.Context, endpoint, path string, query url.Values, result any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)
	target := c.baseURL + path + "?" + query.Encode()

	state := c.retry.start()
	for {
		if err := c.waitForRateLimit(ctx); err != nil {
			return err
		}

		status, retryAfter, err := c.get(ctx, target, result)
		if err != nil {
			return fmt.Errorf("%s: %w", endpoint, err)
		}

		switch status {
		case http.StatusOK:
			return nil
		case http.StatusTooManyRequests:
			wait, ok := state.next(retryAfter)
			if !ok {
				log.Printf("[Riot] Rate limited on %s, giving up after %d attempts", endpoint, state.attempt)
				return &APIError{Endpoint: endpoint, StatusCode: status}
			}
			log.Printf("[Riot] Rate limit exceeded while getting %s. Waiting %s (attempt %d)...",
				endpoint, wait.Round(time.Millisecond), state.attempt)
			if err := sleep(ctx, wait); err != nil {
				return fmt.Errorf("%s: %w", endpoint, err)
			}
		default:
			log.Printf("[Riot] Error getting %s: %d", endpoint, status)
			return &APIError{Endpoint: endpoint, StatusCode: status}
		}
	}
}

// get performs one round trip. The body is decoded only on 200.
func (c *Client) get(ctx context.Context, target string, result any) (int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Riot-Token", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			// url.Error repeats the full URL, which carries the key
			err = uerr.Err
		}
		return 0, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, parseRetryAfter(resp.Header.Get("Retry-After")), nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return 0, 0, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, 0, nil
}

// GetAccountByRiotID resolves a PUUID from a Riot ID (gameName#tagLine)
func (c *Client) GetAccountByRiotID(ctx context.Context, gameName, tagLine string) (*AccountResponse, error) {
	path := fmt.Sprintf("/riot/account/v1/accounts/by-riot-id/%s/%s",
		url.PathEscape(gameName), url.PathEscape(tagLine))

	var account AccountResponse
	if err := c.doRequest(ctx, "account puuid", path, nil, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// GetMatchIDs fetches up to count recent TFT match IDs for a player, newest first
func (c *Client) GetMatchIDs(ctx context.Context, puuid string, start, count int) ([]string, error) {
	path := fmt.Sprintf("/tft/match/v1/matches/by-puuid/%s/ids", url.PathEscape(puuid))
	query := url.Values{}
	query.Set("start", strconv.Itoa(start))
	query.Set("count", strconv.Itoa(count))

	var matchIDs []string
	if err := c.doRequest(ctx, "match list", path, query, &matchIDs); err != nil {
		return nil, err
	}
	return matchIDs, nil
}

// GetMatch fetches the full TFT match record
func (c *Client) GetMatch(ctx context.Context, matchID string) (*MatchResponse, error) {
	path := fmt.Sprintf("/tft/match/v1/matches/%s", url.PathEscape(matchID))

	var match MatchResponse
	if err := c.doRequest(ctx, "match data", path, nil, &match); err != nil {
		return nil, err
	}
	return &match, nil
}
