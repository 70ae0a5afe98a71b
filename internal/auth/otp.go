package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"
)

// OTPManager issues and verifies short-lived numeric verification codes.
// Codes are single-use: a successful verification consumes the entry.
type OTPManager struct {
	mu     sync.Mutex
	codes  map[string]otpEntry
	ttl    time.Duration
	digits int
}

type otpEntry struct {
	code      string
	expiresAt time.Time
}

// NewOTPManager creates a manager issuing codes valid for ttl.
func NewOTPManager(ttl time.Duration) *OTPManager {
	return &OTPManager{
		codes:  make(map[string]otpEntry),
		ttl:    ttl,
		digits: 6,
	}
}

// Issue generates a fresh code for an identity, replacing any prior one.
func (m *OTPManager) Issue(identity string) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < m.digits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	code := fmt.Sprintf("%0*d", m.digits, n)

	m.mu.Lock()
	m.codes[identity] = otpEntry{code: code, expiresAt: time.Now().Add(m.ttl)}
	m.mu.Unlock()

	return code, nil
}

// Verify checks a code for an identity. Expired or unknown codes fail;
// a correct code is consumed.
func (m *OTPManager) Verify(identity, code string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.codes[identity]
	if !ok {
		return false
	}
	if time.Now().After(entry.expiresAt) {
		delete(m.codes, identity)
		return false
	}
	if entry.code != code {
		return false
	}
	delete(m.codes, identity)
	return true
}
