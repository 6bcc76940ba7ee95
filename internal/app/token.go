package app

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/terangapay/backoffice/internal/domain"
)

// ErrInvalidToken is returned for missing, malformed, badly signed or
// expired session tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

// SessionClaims are the claims carried by a session token: the account id
// as subject, plus the role used for authorization checks.
type SessionClaims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 session tokens and owns the
// sliding-session refresh policy.
type TokenService struct {
	secret    []byte
	ttl       time.Duration
	threshold time.Duration
	now       func() time.Time
}

// NewTokenService creates a TokenService with the given signing secret,
// token lifetime and refresh threshold.
func NewTokenService(secret string, ttl, refreshThreshold time.Duration) *TokenService {
	return &TokenService{
		secret:    []byte(secret),
		ttl:       ttl,
		threshold: refreshThreshold,
		now:       time.Now,
	}
}

// Issue produces a signed session token for the account.
func (s *TokenService) Issue(accountID string, role domain.Role) (string, error) {
	now := s.now()
	claims := SessionClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify validates signature and expiry and returns the session claims.
func (s *TokenService) Verify(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// NeedsRefresh reports whether a verified token is close enough to expiry
// that a replacement should be issued.
func (s *TokenService) NeedsRefresh(claims *SessionClaims) bool {
	if claims.ExpiresAt == nil {
		return false
	}
	return ShouldRefresh(claims.ExpiresAt.Time, s.now(), s.threshold)
}

// ShouldRefresh is the sliding-session policy: refresh when the remaining
// lifetime is at or below the threshold. Kept as a pure function so the
// policy is testable apart from the transport.
func ShouldRefresh(expiresAt, now time.Time, threshold time.Duration) bool {
	return expiresAt.Sub(now) <= threshold
}
