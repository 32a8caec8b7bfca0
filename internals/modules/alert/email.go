package alert

import (
	"context"
	"fmt"

	brevo "github.com/getbrevo/brevo-go/lib"
)

type EmailConfig struct {
	APIKey     string
	FromName   string
	FromEmail  string
	Recipients []string
}

// EmailProvider sends transition notifications through Brevo's
// transactional email API.
type EmailProvider struct {
	client *brevo.APIClient
	cfg    EmailConfig
}

func NewEmailProvider(cfg EmailConfig) *EmailProvider {
	apiCfg := brevo.NewConfiguration()
	apiCfg.AddDefaultHeader("api-key", cfg.APIKey)
	return &EmailProvider{
		client: brevo.NewAPIClient(apiCfg),
		cfg:    cfg,
	}
}

func (e *EmailProvider) Name() string { return "email" }

func (e *EmailProvider) Send(ctx context.Context, ev Event) error {
	to := make([]brevo.SendSmtpEmailTo, 0, len(e.cfg.Recipients))
	for _, r := range e.cfg.Recipients {
		to = append(to, brevo.SendSmtpEmailTo{Email: r})
	}

	email := brevo.SendSmtpEmail{
		Sender: &brevo.SendSmtpEmailSender{
			Name:  e.cfg.FromName,
			Email: e.cfg.FromEmail,
		},
		To:          to,
		Subject:     ev.Subject(),
		TextContent: ev.Body(),
	}

	_, resp, err := e.client.TransactionalEmailsApi.SendTransacEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("send transactional email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("brevo returned status %d", resp.StatusCode)
	}
	return nil
}
