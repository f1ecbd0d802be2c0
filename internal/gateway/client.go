package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Sender delivers outbound text through the messaging gateway.
type Sender interface {
	SendText(ctx context.Context, credential, chatID, body string) (SendResult, error)
}

// Client is an HTTP client for the gateway's send API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a gateway client.
func NewClient(log *slog.Logger, baseURL string, timeout time.Duration) *Client {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.With(slog.String("service", "gateway")),
	}
}

type sendRequest struct {
	ChatID string `json:"chat_id"`
	Body   string `json:"body"`
}

// SendText posts a text message to the gateway. The returned external id is
// best-effort; an empty id on a 2xx response is tolerated.
func (c *Client) SendText(ctx context.Context, credential, chatID, body string) (SendResult, error) {
	payload, err := json.Marshal(sendRequest{ChatID: chatID, Body: body})
	if err != nil {
		return SendResult{}, fmt.Errorf("marshal send request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages/text", bytes.NewReader(payload))
	if err != nil {
		return SendResult{}, fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(credential))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return SendResult{}, fmt.Errorf("gateway send: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return SendResult{}, fmt.Errorf("read gateway response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return SendResult{}, fmt.Errorf("gateway send status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var result SendResult
	if err := json.Unmarshal(raw, &result); err != nil {
		// Success payload shapes vary across gateway versions; the send
		// already succeeded, so a missing id is not an error.
		c.logger.Debug("gateway response not parseable", slog.Any("error", err))
		return SendResult{}, nil
	}
	return result, nil
}
