package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// SlackProvider posts transition messages to a Slack incoming webhook.
type SlackProvider struct {
	webhookURL string
	client     *http.Client
}

func NewSlackProvider(webhookURL string, client *http.Client) *SlackProvider {
	return &SlackProvider{webhookURL: webhookURL, client: client}
}

func (s *SlackProvider) Name() string { return "slack" }

func (s *SlackProvider) Send(ctx context.Context, ev Event) error {
	payload := map[string]string{
		"text": fmt.Sprintf("*%s*\n%s", ev.Subject(), ev.Body()),
	}
	return postWebhook(ctx, s.client, s.webhookURL, payload)
}

func postWebhook(ctx context.Context, client *http.Client, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
