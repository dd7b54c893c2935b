package alert

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// Slack posts alerts to a Slack incoming webhook.
type Slack struct {
	webhookURL string
	channel    string
	prefix     string
}

// NewSlack creates a Slack alerter. An empty channel uses the webhook's default.
func NewSlack(webhookURL, channel, prefix string) *Slack {
	return &Slack{webhookURL: webhookURL, channel: channel, prefix: prefix}
}

func (s *Slack) Alert(ctx context.Context, a Alert) error {
	msg := &slack.WebhookMessage{
		Channel: s.channel,
		Text:    a.Text(s.prefix),
	}
	if err := slack.PostWebhookContext(ctx, s.webhookURL, msg); err != nil {
		return fmt.Errorf("failed to post slack alert: %w", err)
	}
	return nil
}
