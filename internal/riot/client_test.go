package riot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

const testKey = "RGAPI-00000000-test-key-0000"

const matchBody = `{
	"metadata": {"match_id": "NA1_42", "participants": ["p1", "p2"]},
	"info": {"participants": [
		{"puuid": "p1", "placement": 1, "traits": [{"name": "Set9_Bruiser", "num_units": 4}]},
		{"puuid": "p2", "riotIdGameName": "", "placement": 8}
	]}
}`

// recorder is a test server that plays back a fixed sequence of responses
type recorder struct {
	mu        sync.Mutex
	requests  []string
	responses []func(w http.ResponseWriter)
}

func (r *recorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	n := len(r.requests)
	r.requests = append(r.requests, req.URL.RequestURI())
	r.mu.Unlock()

	if req.Header.Get("X-Riot-Token") != testKey {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if n >= len(r.responses) {
		n = len(r.responses) - 1
	}
	r.responses[n](w)
}

func (r *recorder) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.requests...)
}

func status(code int) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.WriteHeader(code)
	}
}

func body(s string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(s))
	}
}

func newTestClient(t *testing.T, url string, policy RetryPolicy) *Client {
	t.Helper()
	client, err := NewClient(testKey,
		WithBaseURL(url),
		WithRetryPolicy(policy),
		WithRateLimits(0, 0),
	)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func fastPolicy(maxAttempts int) RetryPolicy {
	return RetryPolicy{
		InitialWait: 50 * time.Millisecond,
		MaxWait:     200 * time.Millisecond,
		Multiplier:  2,
		MaxAttempts: maxAttempts,
	}
}

func TestNewClient_EmptyKey(t *testing.T) {
	if _, err := NewClient(""); err == nil {
		t.Error("Expected error for empty API key")
	}
}

func TestGetAccountByRiotID(t *testing.T) {
	rec := &recorder{responses: []func(http.ResponseWriter){
		body(`{"puuid":"abc-123","gameName":"LunaLush","tagLine":"Heyyy"}`),
	}}
	server := httptest.NewServer(rec)
	defer server.Close()

	client := newTestClient(t, server.URL, fastPolicy(3))

	account, err := client.GetAccountByRiotID(context.Background(), "Luna Lush", "Heyyy")
	if err != nil {
		t.Fatalf("GetAccountByRiotID failed: %v", err)
	}
	if account.PUUID != "abc-123" {
		t.Errorf("Expected PUUID abc-123, got %s", account.PUUID)
	}

	calls := rec.calls()
	want := "/riot/account/v1/accounts/by-riot-id/Luna%20Lush/Heyyy?api_key=" + testKey
	if len(calls) != 1 || calls[0] != want {
		t.Errorf("Expected single request %s, got %v", want, calls)
	}
}

func TestGetMatchIDs_Pagination(t *testing.T) {
	rec := &recorder{responses: []func(http.ResponseWriter){
		body(`["NA1_1","NA1_2","NA1_3"]`),
	}}
	server := httptest.NewServer(rec)
	defer server.Close()

	client := newTestClient(t, server.URL, fastPolicy(3))

	ids, err := client.GetMatchIDs(context.Background(), "p1", 0, 20)
	if err != nil {
		t.Fatalf("GetMatchIDs failed: %v", err)
	}
	if len(ids) != 3 || ids[0] != "NA1_1" {
		t.Errorf("Unexpected match IDs: %v", ids)
	}

	want := "/tft/match/v1/matches/by-puuid/p1/ids?api_key=" + testKey + "&count=20&start=0"
	if calls := rec.calls(); calls[0] != want {
		t.Errorf("Expected request %s, got %s", want, calls[0])
	}
}

func TestGetMatch_Decodes(t *testing.T) {
	rec := &recorder{responses: []func(http.ResponseWriter){body(matchBody)}}
	server := httptest.NewServer(rec)
	defer server.Close()

	client := newTestClient(t, server.URL, fastPolicy(3))

	match, err := client.GetMatch(context.Background(), "NA1_42")
	if err != nil {
		t.Fatalf("GetMatch failed: %v", err)
	}
	if match.Metadata.MatchID != "NA1_42" {
		t.Errorf("Expected match_id NA1_42, got %s", match.Metadata.MatchID)
	}
	if got := match.ParticipantPUUIDs(); len(got) != 2 {
		t.Errorf("Expected 2 metadata participants, got %v", got)
	}
	if len(match.Info.Participants) != 2 {
		t.Fatalf("Expected 2 info participants, got %d", len(match.Info.Participants))
	}
	p := match.Info.Participants[0]
	if p.Placement == nil || *p.Placement != 1 {
		t.Errorf("Expected placement 1, got %v", p.Placement)
	}
	if p.TotalDamageToPlayers != nil {
		t.Errorf("Expected missing damage to stay nil, got %d", *p.TotalDamageToPlayers)
	}
	if len(p.Traits) != 1 || p.Traits[0].NumUnits != 4 {
		t.Errorf("Unexpected traits: %+v", p.Traits)
	}
	if p.RiotIDGameName != nil {
		t.Errorf("Expected missing game name to stay nil, got %q", *p.RiotIDGameName)
	}
	if name := match.Info.Participants[1].RiotIDGameName; name == nil || *name != "" {
		t.Errorf("Expected empty game name to decode as present, got %v", name)
	}
}

// A 429 followed by a 200 returns the 200 body after a single wait
func TestRateLimit_RetriesIdenticalRequest(t *testing.T) {
	rec := &recorder{responses: []func(http.ResponseWriter){
		status(http.StatusTooManyRequests),
		body(matchBody),
	}}
	server := httptest.NewServer(rec)
	defer server.Close()

	policy := fastPolicy(5)
	client := newTestClient(t, server.URL, policy)

	start := time.Now()
	match, err := client.GetMatch(context.Background(), "NA1_42")
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Expected retry to succeed, got: %v", err)
	}
	if match.Metadata.MatchID != "NA1_42" {
		t.Errorf("Expected the retried response body, got match_id %q", match.Metadata.MatchID)
	}

	calls := rec.calls()
	if len(calls) != 2 {
		t.Fatalf("Expected exactly 2 requests, got %d", len(calls))
	}
	if calls[0] != calls[1] {
		t.Errorf("Expected identical retried request, got %s then %s", calls[0], calls[1])
	}
	if elapsed < policy.InitialWait {
		t.Errorf("Expected to wait at least %v, waited %v", policy.InitialWait, elapsed)
	}
}

func TestRateLimit_HonorsRetryAfter(t *testing.T) {
	rec := &recorder{responses: []func(http.ResponseWriter){
		func(w http.ResponseWriter) {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
		},
		body(`["NA1_1"]`),
	}}
	server := httptest.NewServer(rec)
	defer server.Close()

	client := newTestClient(t, server.URL, fastPolicy(3))

	start := time.Now()
	if _, err := client.GetMatchIDs(context.Background(), "p1", 0, 20); err != nil {
		t.Fatalf("GetMatchIDs failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Errorf("Expected Retry-After of 1s to be honoured, waited %v", elapsed)
	}
}

func TestRateLimit_GivesUpAfterMaxAttempts(t *testing.T) {
	rec := &recorder{responses: []func(http.ResponseWriter){status(http.StatusTooManyRequests)}}
	server := httptest.NewServer(rec)
	defer server.Close()

	client := newTestClient(t, server.URL, RetryPolicy{
		InitialWait: 5 * time.Millisecond,
		MaxWait:     20 * time.Millisecond,
		Multiplier:  2,
		MaxAttempts: 3,
	})

	_, err := client.GetMatch(context.Background(), "NA1_42")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("Expected ErrRateLimited, got: %v", err)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Expected APIError with status 429, got: %v", err)
	}
	if n := len(rec.calls()); n != 3 {
		t.Errorf("Expected 3 attempts, got %d", n)
	}
}

func TestRateLimit_CancelledDuringWait(t *testing.T) {
	rec := &recorder{responses: []func(http.ResponseWriter){status(http.StatusTooManyRequests)}}
	server := httptest.NewServer(rec)
	defer server.Close()

	client := newTestClient(t, server.URL, RetryPolicy{InitialWait: time.Hour, MaxAttempts: 0})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := client.GetMatch(ctx, "NA1_42")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected deadline exceeded, got: %v", err)
	}
}

// Non-429 failures are returned immediately, never retried
func TestNonRetryableStatus(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusInternalServerError, ErrUnexpected},
	}

	for _, tc := range cases {
		rec := &recorder{responses: []func(http.ResponseWriter){status(tc.status)}}
		server := httptest.NewServer(rec)

		client := newTestClient(t, server.URL, fastPolicy(5))
		ids, err := client.GetMatchIDs(context.Background(), "p1", 0, 20)
		server.Close()

		if !errors.Is(err, tc.want) {
			t.Errorf("status %d: expected %v, got %v", tc.status, tc.want, err)
		}
		if ids != nil {
			t.Errorf("status %d: expected no data, got %v", tc.status, ids)
		}
		if n := len(rec.calls()); n != 1 {
			t.Errorf("status %d: expected 1 request, got %d", tc.status, n)
		}
	}
}

func TestTransportError_NotRetried(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := newTestClient(t, url, fastPolicy(5))
	_, err := client.GetMatch(context.Background(), "NA1_42")
	if err == nil {
		t.Fatal("Expected transport error")
	}
	if IsAPIKeyError(err) {
		t.Errorf("Transport error should not look like a key error: %v", err)
	}
}

func TestRetryState_BoundedExponential(t *testing.T) {
	state := RetryPolicy{
		InitialWait: 10 * time.Millisecond,
		MaxWait:     30 * time.Millisecond,
		Multiplier:  2,
		MaxAttempts: 4,
	}.start()

	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond}
	for i, w := range want {
		got, ok := state.next(0)
		if !ok {
			t.Fatalf("retry %d: expected another attempt", i+1)
		}
		if got != w {
			t.Errorf("retry %d: expected wait %v, got %v", i+1, w, got)
		}
	}
	if _, ok := state.next(0); ok {
		t.Error("Expected attempts to be exhausted")
	}
}

func TestRetryState_JitterNeverBelowInitialWait(t *testing.T) {
	policy := DefaultRetryPolicy()
	policy.MaxAttempts = 0
	state := policy.start()

	for i := 0; i < 10; i++ {
		got, ok := state.next(0)
		if !ok {
			t.Fatal("Expected unlimited attempts")
		}
		if got < policy.InitialWait {
			t.Errorf("retry %d: wait %v below initial %v", i+1, got, policy.InitialWait)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	cases := map[string]time.Duration{
		"":    0,
		"10":  10 * time.Second,
		"-1":  0,
		"abc": 0,
	}
	for in, want := range cases {
		if got := parseRetryAfter(in); got != want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", in, got, want)
		}
	}
}
