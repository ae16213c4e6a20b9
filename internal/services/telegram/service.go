// Package telegram posts run summaries to a Telegram chat.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"time"

	"github.com/fgeck/partition-archiver/internal/models"
	"github.com/rs/zerolog"
)

// Service defines the interface for Telegram notification operations.
type Service interface {
	SendSummary(ctx context.Context, cfg models.TelegramConfig, summary models.RunSummary) error
}

// HTTPClient allows mocking HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Impl implements the Telegram Service interface.
type Impl struct {
	httpClient HTTPClient
	logger     zerolog.Logger
	baseURL    string
}

// New creates a new Telegram service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:  logger,
		baseURL: "https://api.telegram.org",
	}
}

// NewWithClient creates a new Telegram service with a custom HTTP client (for testing).
func NewWithClient(logger zerolog.Logger, httpClient HTTPClient, baseURL string) *Impl {
	return &Impl{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
	}
}

// sendMessageRequest is the request body for Telegram sendMessage API.
type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendSummary posts the run summary to the configured chat.
func (s *Impl) SendSummary(ctx context.Context, cfg models.TelegramConfig, summary models.RunSummary) error {
	s.logger.Debug().
		Str("chat_id", cfg.ChatID).
		Str("outcome", string(summary.Outcome)).
		Msg("sending Telegram notification")

	jsonBody, err := json.Marshal(sendMessageRequest{
		ChatID:    cfg.ChatID,
		Text:      FormatSummary(summary),
		ParseMode: "HTML",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, cfg.BotToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	s.logger.Info().Msg("Telegram notification sent")
	return nil
}

// FormatSummary renders a run summary as Telegram HTML.
func FormatSummary(summary models.RunSummary) string {
	var b bytes.Buffer

	if summary.Outcome == models.OutcomeFailed {
		b.WriteString("<b>Partition maintenance failed</b>\n\n")
	} else {
		b.WriteString("<b>Partition maintenance finished</b>\n\n")
	}

	fmt.Fprintf(&b, "<b>Parent:</b> %s\n", html.EscapeString(summary.Parent))
	fmt.Fprintf(&b, "<b>Outcome:</b> %s\n", summary.Outcome)
	fmt.Fprintf(&b, "<b>Started:</b> %s\n", summary.StartTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "<b>Duration:</b> %s\n", summary.Duration.Round(time.Second))

	if len(summary.Partitions) > 0 {
		b.WriteString("\n<b>Partitions:</b>\n")
		for _, p := range summary.Partitions {
			fmt.Fprintf(&b, "  • <code>%s</code>: %s\n", html.EscapeString(p.Name), p.State)
		}
	}

	if summary.Outcome == models.OutcomeFailed {
		b.WriteString("\n<b>Error Details:</b>\n")
		fmt.Fprintf(&b, "  • Failed step: %s\n", html.EscapeString(summary.FailedStep))
		fmt.Fprintf(&b, "  • Error: <code>%s</code>\n", html.EscapeString(summary.Error))
	}

	return b.String()
}
