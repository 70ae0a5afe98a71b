package interfaces

// NotificationService delivers out-of-band messages (email, SMS). Delivery
// failures are reported to the caller and never retried at this layer.
type NotificationService interface {
	SendEmail(to, subject, body string) error
	SendSMS(to, message string) error
	SendVerificationCode(channel, to, code string) error
}

// VerificationService issues single-use codes to an out-of-band destination
// and confirms codes presented back.
type VerificationService interface {
	SendCode(identity, channel, destination string) error
	Confirm(identity, code string) bool
}

// TokenService issues and validates authentication tokens.
type TokenService interface {
	IssueToken(userID string, userType string) (string, error)
	VerifyToken(token string) (*TokenClaims, error)
}

// TokenClaims are the validated fields carried by an auth token.
type TokenClaims struct {
	UserID   string `json:"userId"`
	UserType string `json:"userType"`
}
