package notifyclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Client отправляет уведомления в notification-сервис (best-effort, не блокирует API).
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient возвращает клиент. Если baseURL пустой, вызовы Send — no-op.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Payload — тело POST /notify/send.
type Payload struct {
	UserID   string  `json:"user_id"`
	Message  string  `json:"message"`
	Type     string  `json:"type"`
	TicketID *string `json:"ticket_id,omitempty"`
}

// Send отправляет уведомление синхронно.
func (c *Client) Send(ctx context.Context, p Payload) {
	if c.baseURL == "" {
		return
	}
	body, err := json.Marshal(p)
	if err != nil {
		log.Error().Err(err).Msg("notifyclient: marshal")
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/notify/send", bytes.NewReader(body))
	if err != nil {
		log.Error().Err(err).Msg("notifyclient: new request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("user_id", p.UserID).Msg("notifyclient: request")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Str("user_id", p.UserID).Msg("notifyclient: unexpected status")
	}
}

// SendAsync вызывает Send в отдельной горутине.
func (c *Client) SendAsync(p Payload) {
	if c.baseURL == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.Send(ctx, p)
	}()
}
