package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// Service sends the post-submission notifications. Implementations must be
// safe for concurrent use; failures are logged by callers, never fatal to a
// submission.
type Service interface {
	SendVisitSubmitted(ctx context.Context, patientID string, visitID string) error
}

type Config struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	// Recipient of submission notices, typically a clinic inbox.
	NotifyAddress string `mapstructure:"notify_address"`
}

type smtpService struct {
	dialer *gomail.Dialer
	cfg    Config
}

func NewSMTPService(cfg Config) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		cfg:    cfg,
	}
}

func (s *smtpService) SendVisitSubmitted(ctx context.Context, patientID string, visitID string) error {
	if s.cfg.NotifyAddress == "" {
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", s.cfg.NotifyAddress)
	m.SetHeader("Subject", fmt.Sprintf("Visit %s submitted", visitID))
	m.SetBody("text/plain", fmt.Sprintf(
		"A visit record was submitted.\n\nVisit: %s\nPatient: %s\n", visitID, patientID))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send visit notification: %w", err)
	}
	return nil
}

// Noop returns a notifier that does nothing, for deployments without SMTP.
func Noop() Service { return noopService{} }

type noopService struct{}

func (noopService) SendVisitSubmitted(context.Context, string, string) error { return nil }
