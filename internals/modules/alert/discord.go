package alert

import (
	"context"
	"fmt"
	"net/http"
)

// DiscordProvider posts transition messages to a Discord webhook.
type DiscordProvider struct {
	webhookURL string
	client     *http.Client
}

func NewDiscordProvider(webhookURL string, client *http.Client) *DiscordProvider {
	return &DiscordProvider{webhookURL: webhookURL, client: client}
}

func (d *DiscordProvider) Name() string { return "discord" }

func (d *DiscordProvider) Send(ctx context.Context, ev Event) error {
	payload := map[string]string{
		"content": fmt.Sprintf("**%s**\n%s", ev.Subject(), ev.Body()),
	}
	return postWebhook(ctx, d.client, d.webhookURL, payload)
}
