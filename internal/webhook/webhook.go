// Package webhook posts chat messages to Discord-style webhook URLs.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// ErrRejected reports a non-2xx webhook response.
var ErrRejected = errors.New("webhook: rejected")

// maxContent is the longest message a webhook accepts.
const maxContent = 2000

type message struct {
	Content  string `json:"content"`
	Username string `json:"username,omitempty"`
}

// Sender delivers messages, spacing consecutive sends by a fixed delay.
type Sender struct {
	client   *http.Client
	username string
	limiter  *rate.Limiter
}

// NewSender returns a Sender posting as username. A non-positive delay
// disables spacing. A nil client uses http.DefaultClient.
func NewSender(username string, delay time.Duration, client *http.Client) *Sender {
	if client == nil {
		client = http.DefaultClient
	}
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Sender{client: client, username: username, limiter: rate.NewLimiter(limit, 1)}
}

// Send posts content to url. It blocks until the send spacing allows it.
func (s *Sender) Send(ctx context.Context, url, content string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	if r := []rune(content); len(r) > maxContent {
		content = string(r[:maxContent])
	}

	body, err := json.Marshal(message{Content: content, Username: s.username})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		slog.Warn("edgedupe: webhook rejected message", "status", resp.StatusCode,
			"retry_after", resp.Header.Get("Retry-After"))
		return fmt.Errorf("%w: %s: %s", ErrRejected, resp.Status, bytes.TrimSpace(detail))
	}
	return nil
}
