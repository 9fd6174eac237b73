// Package telegram implements the minimal Telegram Bot API client the report
// jobs publish through. It only covers sending and editing text messages;
// update handling and command routing live outside this service.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/studyhub/study-tracker-hub/internal/domain/report"
	"github.com/studyhub/study-tracker-hub/pkg/circuitbreaker"
	"github.com/studyhub/study-tracker-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the Telegram client.
type ClientConfig struct {
	// Token is the Telegram Bot API token
	Token string

	// BaseURL is the Telegram Bot API base URL (default: https://api.telegram.org)
	BaseURL string

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// ParseMode applies to every published message ("HTML" by default)
	ParseMode string

	// Logger for structured logging
	Logger *slog.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(token string) ClientConfig {
	return ClientConfig{
		Token:     token,
		BaseURL:   "https://api.telegram.org",
		Timeout:   30 * time.Second,
		ParseMode: "HTML",
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// TELEGRAM API TYPES
// ══════════════════════════════════════════════════════════════════════════════

// Message is the slice of the Telegram message object this client reads back.
type Message struct {
	MessageID int64 `json:"message_id"`
}

// APIResponse represents a Telegram API response.
type APIResponse struct {
	OK          bool                `json:"ok"`
	Result      json.RawMessage     `json:"result,omitempty"`
	Description string              `json:"description,omitempty"`
	ErrorCode   int                 `json:"error_code,omitempty"`
	Parameters  *ResponseParameters `json:"parameters,omitempty"`
}

// ResponseParameters contains additional error parameters.
type ResponseParameters struct {
	MigrateToChatID int64 `json:"migrate_to_chat_id,omitempty"`
	RetryAfter      int   `json:"retry_after,omitempty"`
}

// APIError represents a Telegram API error.
type APIError struct {
	Code        int
	Description string
	RetryAfter  int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("telegram api error %d: %s", e.Code, e.Description)
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the Telegram Bot API publisher. Calls go through a retrier and a
// circuit breaker so a flapping API degrades to skipped report ticks instead
// of piling up goroutines.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *slog.Logger
	retrier    *retry.Retrier
	breaker    *circuitbreaker.CircuitBreaker
}

// NewClient creates a new Telegram client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.telegram.org"
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	logger := config.Logger

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:  logger,
		retrier: retry.TelegramRetrier(),
		breaker: circuitbreaker.TelegramAPIBreaker(func(name string, from, to circuitbreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		}),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// report.Publisher
// ─────────────────────────────────────────────────────────────────────────────

// Publish sends a new message and returns its message ID.
func (c *Client) Publish(ctx context.Context, chatID int64, text string) (int64, error) {
	body := map[string]interface{}{
		"chat_id":                  chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}
	if c.config.ParseMode != "" {
		body["parse_mode"] = c.config.ParseMode
	}

	var message Message
	if err := c.callAPI(ctx, "sendMessage", body, &message); err != nil {
		return 0, fmt.Errorf("send message: %w", err)
	}

	return message.MessageID, nil
}

// Edit replaces the text of a previously published message. Editing a deleted
// or inaccessible message returns report.ErrMessageGone; editing to identical
// text is treated as success.
func (c *Client) Edit(ctx context.Context, chatID, messageID int64, text string) error {
	body := map[string]interface{}{
		"chat_id":                  chatID,
		"message_id":               messageID,
		"text":                     text,
		"disable_web_page_preview": true,
	}
	if c.config.ParseMode != "" {
		body["parse_mode"] = c.config.ParseMode
	}

	err := c.callAPI(ctx, "editMessageText", body, nil)
	if err == nil {
		return nil
	}
	if isMessageNotModified(err) {
		return nil
	}
	if isMessageGone(err) {
		return fmt.Errorf("%w: chat %d message %d", report.ErrMessageGone, chatID, messageID)
	}

	return fmt.Errorf("edit message: %w", err)
}

// ─────────────────────────────────────────────────────────────────────────────
// Health
// ─────────────────────────────────────────────────────────────────────────────

// IsHealthy reports whether the bot token is valid and the API reachable.
func (c *Client) IsHealthy(ctx context.Context) bool {
	return c.callAPI(ctx, "getMe", nil, nil) == nil
}

// ══════════════════════════════════════════════════════════════════════════════
// API CALL HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// callAPI makes a call to the Telegram Bot API through the breaker and the
// retrier. Non-retryable API errors are marked permanent so the retrier stops
// immediately.
func (c *Client) callAPI(ctx context.Context, method string, body map[string]interface{}, result interface{}) error {
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			err := c.doAPICall(ctx, method, body, result)
			if err == nil {
				return nil
			}

			var apiErr *APIError
			if errors.As(err, &apiErr) {
				if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500 {
					return retry.Retryable(err)
				}
				return retry.Permanent(err)
			}

			// Transport-level failures are worth another attempt.
			return retry.Retryable(err)
		})
	})
}

// doAPICall performs a single API call.
func (c *Client) doAPICall(ctx context.Context, method string, body map[string]interface{}, result interface{}) error {
	url := fmt.Sprintf("%s/bot%s/%s", c.config.BaseURL, c.config.Token, method)

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	if !apiResp.OK {
		apiErr := &APIError{
			Code:        apiResp.ErrorCode,
			Description: apiResp.Description,
		}
		if apiResp.Parameters != nil {
			apiErr.RetryAfter = apiResp.Parameters.RetryAfter
		}
		return apiErr
	}

	if result != nil && len(apiResp.Result) > 0 {
		if err := json.Unmarshal(apiResp.Result, result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR CLASSIFICATION
// ══════════════════════════════════════════════════════════════════════════════

// isMessageGone reports whether the error means the anchored message no
// longer exists or cannot be edited anymore.
func isMessageGone(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code != 400 && apiErr.Code != 403 {
		return false
	}

	desc := strings.ToLower(apiErr.Description)
	for _, marker := range []string{
		"message to edit not found",
		"message can't be edited",
		"chat not found",
		"bot was kicked",
	} {
		if strings.Contains(desc, marker) {
			return true
		}
	}
	return false
}

// isMessageNotModified reports the edit-to-identical-text non-error.
func isMessageNotModified(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == 400 && strings.Contains(strings.ToLower(apiErr.Description), "message is not modified")
}
