package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/logger"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendEmail(to, subject, body string) error {
	args := m.Called(to, subject, body)
	return args.Error(0)
}

func (m *MockNotifier) SendSMS(to, message string) error {
	args := m.Called(to, message)
	return args.Error(0)
}

func (m *MockNotifier) SendVerificationCode(channel, to, code string) error {
	args := m.Called(channel, to, code)
	return args.Error(0)
}

func TestSendCodeDeliversIssuedCode(t *testing.T) {
	otp := NewOTPManager(time.Minute)
	notifier := new(MockNotifier)

	var delivered string
	notifier.On("SendVerificationCode", "sms", "+15550001111", mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { delivered = args.String(2) }).
		Return(nil)

	v := NewVerifier(otp, notifier, logger.New("panic"))
	require.NoError(t, v.SendCode("user-1", "sms", "+15550001111"))

	require.Len(t, delivered, 6)
	assert.True(t, v.Confirm("user-1", delivered))
	notifier.AssertExpectations(t)
}

func TestSendCodePropagatesDeliveryFailure(t *testing.T) {
	otp := NewOTPManager(time.Minute)
	notifier := new(MockNotifier)
	notifier.On("SendVerificationCode", "email", "user@example.com", mock.Anything).
		Return(errors.New("smtp down"))

	v := NewVerifier(otp, notifier, logger.New("panic"))
	assert.Error(t, v.SendCode("user-1", "email", "user@example.com"))
}

func TestConfirmUnknownIdentityFails(t *testing.T) {
	v := NewVerifier(NewOTPManager(time.Minute), new(MockNotifier), logger.New("panic"))
	assert.False(t, v.Confirm("nobody", "123456"))
}
