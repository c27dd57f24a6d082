package discord

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
)

const (
	// Colors for Discord embeds
	colorRed   = 15158332 // 0xE74C3C
	colorGreen = 5763719  // 0x57F287
	colorAmber = 15844367 // 0xF1C40F

	defaultWebhookTimeout = 10 * time.Second

	// Max retries for rate limiting
	maxRetries = 3
)

// WebhookPayload represents a Discord webhook message
type WebhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// Embed represents a Discord embed
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

// EmbedField represents a field in a Discord embed
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// EmbedFooter represents the footer of a Discord embed
type EmbedFooter struct {
	Text string `json:"text"`
}

// WalkSummary is what gets reported when a walk ends
type WalkSummary struct {
	StartPlayer  string
	LayersRun    int
	WastedLayers int
	Matches      int
	Rows         int
	Runtime      time.Duration
	StoppedEarly bool
	Interrupted  bool
	Output       string
}

// NewWalkCompletePayload creates the notification sent after a walk finishes
func NewWalkCompletePayload(s WalkSummary) WebhookPayload {
	title, color := "✅ Match Walk Complete", colorGreen
	footer := "Exported to " + s.Output
	switch {
	case s.Interrupted:
		title, color = "⏹️ Match Walk Interrupted", colorAmber
		footer = "Interrupted, partial results. " + footer
	case s.StoppedEarly:
		footer = "Stopped early (match without participants). " + footer
	}

	return WebhookPayload{
		Embeds: []Embed{
			{
				Title:       title,
				Description: "Started from " + s.StartPlayer,
				Color:       color,
				Fields: []EmbedField{
					{
						Name:   "Layers",
						Value:  fmt.Sprintf("%d (%d empty)", s.LayersRun, s.WastedLayers),
						Inline: true,
					},
					{
						Name:   "Matches",
						Value:  formatNumber(s.Matches),
						Inline: true,
					},
					{
						Name:   "Rows",
						Value:  formatNumber(s.Rows),
						Inline: true,
					},
					{
						Name:   "Runtime",
						Value:  formatDuration(s.Runtime),
						Inline: true,
					},
				},
				Footer: &EmbedFooter{
					Text: footer,
				},
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			},
		},
	}
}

// NewWalkFailedPayload creates the notification sent when a walk cannot finish
func NewWalkFailedPayload(startPlayer string, reason error, matchesCollected int) WebhookPayload {
	return WebhookPayload{
		Content: "@here Match walk stopped",
		Embeds: []Embed{
			{
				Title:       "❌ Match Walk Failed",
				Description: reason.Error(),
				Color:       colorRed,
				Fields: []EmbedField{
					{
						Name:   "Start Player",
						Value:  startPlayer,
						Inline: true,
					},
					{
						Name:   "Matches Collected",
						Value:  formatNumber(matchesCollected),
						Inline: true,
					},
				},
			},
		},
	}
}

// WebhookClient sends notifications to Discord webhooks
type WebhookClient struct {
	webhookURL string
	httpClient *http.Client
}

func NewWebhookClient(webhookURL string) *WebhookClient {
	return &WebhookClient{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: defaultWebhookTimeout,
		},
	}
}

func (c *WebhookClient) SendWalkComplete(ctx context.Context, s WalkSummary) error {
	return c.sendPayload(ctx, NewWalkCompletePayload(s))
}

func (c *WebhookClient) SendWalkFailed(ctx context.Context, startPlayer string, reason error, matchesCollected int) error {
	return c.sendPayload(ctx, NewWalkFailedPayload(startPlayer, reason, matchesCollected))
}

// sendPayload sends a webhook payload with retry on rate limiting
func (c *WebhookClient) sendPayload(ctx context.Context, payload WebhookPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		resp.Body.Close()

		// Discord returns 204 No Content
		if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK {
			return nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			waitDuration := time.Second
			if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
				waitDuration = time.Duration(seconds) * time.Second
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitDuration):
				continue
			}
		}

		return fmt.Errorf("webhook request failed with status %d", resp.StatusCode)
	}

	return fmt.Errorf("webhook request failed after %d retries", maxRetries)
}

// formatNumber formats a number with commas (e.g., 47832 -> "47,832")
func formatNumber(n int) string {
	if n < 1000 {
		return strconv.Itoa(n)
	}

	s := strconv.Itoa(n)
	var result bytes.Buffer
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result.WriteByte(',')
		}
		result.WriteRune(c)
	}
	return result.String()
}

// formatDuration formats a duration as "Xh Ym" (e.g., 18h 32m)
func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
