package login

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims identifies the account a session key was issued to,
// following the teacher's ServiceClaims{ServiceID, RegisteredClaims} shape
// (infrastructure/serviceauth) but naming an account instead of a service.
type SessionClaims struct {
	AccountID string `json:"account_id"`
	jwt.RegisteredClaims
}

// SessionTokenSigner signs a short-lived JWT that is returned alongside the
// raw hex session key in the login Response (§4.14); it is not written into
// the character-list packet. The raw key
// remains the source of truth the game server looks up in the store; the
// JWT is a self-contained credential a REST/ops surface can verify without a
// store round trip.
type SessionTokenSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewSessionTokenSigner constructs a signer. A nil/empty secret disables
// signing: SignSession then returns "" and callers skip the field.
func NewSessionTokenSigner(secret string, ttl time.Duration) *SessionTokenSigner {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SessionTokenSigner{secret: []byte(secret), ttl: ttl}
}

// SignSession mints a token binding accountID to the session, or "" if no
// secret was configured.
func (s *SessionTokenSigner) SignSession(accountID string) (string, error) {
	if s == nil || len(s.secret) == 0 {
		return "", nil
	}
	now := time.Now()
	claims := &SessionClaims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    "realmd-login",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}
