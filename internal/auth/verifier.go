package auth

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/interfaces"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/logger"
)

// Verifier ties code issuance to delivery: it generates a code for an
// identity and sends it over the requested channel.
type Verifier struct {
	otp      *OTPManager
	notifier interfaces.NotificationService
	logger   *logrus.Entry
}

// NewVerifier creates a verifier delivering codes through the notification
// service.
func NewVerifier(otp *OTPManager, notifier interfaces.NotificationService, log *logger.Logger) *Verifier {
	return &Verifier{
		otp:      otp,
		notifier: notifier,
		logger:   log.WithComponent("verifier"),
	}
}

// SendCode issues a fresh code for the identity and delivers it to the
// destination over the channel ("email" or "sms").
func (v *Verifier) SendCode(identity, channel, destination string) error {
	code, err := v.otp.Issue(identity)
	if err != nil {
		return err
	}
	if err := v.notifier.SendVerificationCode(channel, destination, code); err != nil {
		return fmt.Errorf("failed to deliver verification code: %w", err)
	}
	v.logger.WithFields(logrus.Fields{"identity": identity, "channel": channel}).Info("Verification code sent")
	return nil
}

// Confirm checks a presented code. A correct code is consumed.
func (v *Verifier) Confirm(identity, code string) bool {
	return v.otp.Verify(identity, code)
}
