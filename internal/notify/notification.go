// Package notify delivers out-of-band messages: email over SMTP and SMS
// through the Twilio REST API. Failures surface to the caller and are
// never retried at this layer.
package notify

import (
	"fmt"
	"net/http"
	"net/smtp"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/config"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/interfaces"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/logger"
)

// Service implements NotificationService over SMTP and Twilio.
type Service struct {
	cfg    *config.NotifyConfig
	client *http.Client
	logger *logrus.Entry
}

// NewService creates a notification service from configuration.
func NewService(cfg *config.NotifyConfig, log *logger.Logger) *Service {
	return &Service{
		cfg:    cfg,
		client: &http.Client{Timeout: time.Duration(cfg.RequestTimeout) * time.Second},
		logger: log.WithComponent("notify"),
	}
}

var _ interfaces.NotificationService = (*Service)(nil)

// SendEmail sends an email through the configured SMTP relay.
func (s *Service) SendEmail(to, subject, body string) error {
	if s.cfg.SMTPHost == "" {
		return fmt.Errorf("smtp is not configured")
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPassword, s.cfg.SMTPHost)

	msg := strings.Join([]string{
		"From: " + s.cfg.FromAddress,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(addr, auth, s.cfg.FromAddress, []string{to}, []byte(msg)); err != nil {
		s.logger.WithError(err).WithField("to", to).Error("Failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.WithField("to", to).Info("Email sent")
	return nil
}

// SendSMS sends a text message through the Twilio messages endpoint.
func (s *Service) SendSMS(to, message string) error {
	if s.cfg.TwilioSID == "" || s.cfg.TwilioToken == "" {
		return fmt.Errorf("twilio is not configured")
	}

	endpoint := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", s.cfg.TwilioSID)
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.cfg.TwilioFrom)
	form.Set("Body", message)

	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build sms request: %w", err)
	}
	req.SetBasicAuth(s.cfg.TwilioSID, s.cfg.TwilioToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.WithError(err).WithField("to", to).Error("Failed to send SMS")
		return fmt.Errorf("failed to send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		s.logger.WithField("status", resp.StatusCode).Error("Twilio rejected SMS")
		return fmt.Errorf("twilio returned status %d", resp.StatusCode)
	}

	s.logger.WithField("to", to).Info("SMS sent")
	return nil
}

// SendVerificationCode routes a verification code over the requested
// channel ("email" or "sms").
func (s *Service) SendVerificationCode(channel, to, code string) error {
	switch channel {
	case "sms":
		return s.SendSMS(to, fmt.Sprintf("Your HealNest verification code is %s", code))
	case "email":
		return s.SendEmail(to, "Your HealNest verification code",
			fmt.Sprintf("Your verification code is %s. It expires in 10 minutes.", code))
	default:
		return fmt.Errorf("unknown verification channel: %s", channel)
	}
}
