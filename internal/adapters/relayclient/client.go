package relayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tg-relay-bot/internal/infra/metrics"
)

// Client — HTTP-клиент входной двери ретрансляции. Используется шлюзом
// бота для передачи входящих сообщений в API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// Option настраивает клиент.
type Option func(*Client)

// WithHTTPClient подменяет http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout задаёт таймаут запросов.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if c.httpClient == nil {
			c.httpClient = &http.Client{}
		}
		c.httpClient.Timeout = timeout
	}
}

// New создаёт клиент по базовому URL API.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "http"
	}
	client := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type userSendRequest struct {
	Content    string `json:"content"`
	SenderID   int64  `json:"sender_id"`
	FromUserID int64  `json:"from_user_id"`
}

type botSendRequest struct {
	Content    string `json:"content"`
	FromUserID int64  `json:"from_user_id"`
	SaveToDB   bool   `json:"save_to_db"`
}

type defaultSendRequest struct {
	Content    string `json:"content"`
	FromUserID int64  `json:"from_user_id"`
}

type summaryResponse struct {
	Message string `json:"message"`
}

type apiError struct {
	Error string `json:"error"`
}

// UserSend передаёт команду /user_send.
func (c *Client) UserSend(ctx context.Context, content string, fromUserID int64) (string, error) {
	return c.post(ctx, "/user_send", userSendRequest{Content: content, SenderID: fromUserID, FromUserID: fromUserID})
}

// BotSend передаёт команду /bot_send.
func (c *Client) BotSend(ctx context.Context, content string, fromUserID int64, saveToDB bool) (string, error) {
	return c.post(ctx, "/bot_send", botSendRequest{Content: content, FromUserID: fromUserID, SaveToDB: saveToDB})
}

// DefaultSend передаёт текст без распознанного префикса.
func (c *Client) DefaultSend(ctx context.Context, content string, fromUserID int64) (string, error) {
	return c.post(ctx, "/default_send", defaultSendRequest{Content: content, FromUserID: fromUserID})
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	target := c.baseURL.ResolveReference(&url.URL{Path: endpoint})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ObserveNetworkRequest("relay_api", "post", strings.TrimPrefix(endpoint, "/"), start, err)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var apiErr apiError
		if jsonErr := json.Unmarshal(data, &apiErr); jsonErr == nil && apiErr.Error != "" {
			return "", fmt.Errorf("api status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return "", fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	var summary summaryResponse
	if err := json.Unmarshal(data, &summary); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return summary.Message, nil
}
