package notification

import (
	"context"
	"fmt"

	awsclients "franchisee-hub/internal/common/aws"
	"franchisee-hub/internal/common/config"
	"franchisee-hub/internal/common/logger"
)

// NewFromConfig builds a dispatcher for the configured provider.
func NewFromConfig(ctx context.Context, cfg *config.Config, log logger.Logger) (*Dispatcher, error) {
	n := cfg.Notifications

	renderer, err := NewRenderer(n.FromName, n.PortalURL)
	if err != nil {
		return nil, err
	}

	var mailer Mailer
	switch n.Provider {
	case "ses":
		client, err := awsclients.NewSESClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			return nil, fmt.Errorf("ses client: %w", err)
		}
		mailer = NewSESMailer(client)
	case "smtp":
		smtpCfg := cfg.Integrations.SMTP
		mailer = NewSMTPMailer(SMTPConfig{
			Host:     smtpCfg.Host,
			Port:     smtpCfg.Port,
			Username: smtpCfg.Username,
			Password: smtpCfg.Password,
			UseTLS:   smtpCfg.UseTLS,
		})
	default:
		mailer = NewLogMailer(log)
	}

	var sms SMSSender
	if n.SMS.Enabled && cfg.Integrations.AWS.SNS.Enabled {
		client, err := awsclients.NewSNSClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			return nil, fmt.Errorf("sns client: %w", err)
		}
		sms = NewSNSSender(client, cfg.Integrations.AWS.SNS.DefaultSMSSenderID)
	}

	return NewDispatcher(Config{
		FromAddress:  n.FromEmail,
		FromName:     n.FromName,
		AwaitTimeout: config.GetDuration(n.AwaitTimeout),
		SendTimeout:  config.GetDuration(n.SendTimeout),
	}, renderer, mailer, sms, log), nil
}
