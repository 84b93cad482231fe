package auth

import (
	"errors"
	"fmt"
	"time"

	"listing-portal/internal/apperr"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the session lifetime used when none is configured.
const DefaultTokenTTL = 7 * 24 * time.Hour

// ErrInvalidToken is wrapped by every verification failure.
var ErrInvalidToken = errors.New("auth: invalid or expired token")

// Claims are the identity and role snapshot carried by a session token.
// The account id travels in the registered "sub" claim.
type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// AccountID returns the subject of the token.
func (c *Claims) AccountID() string {
	return c.Subject
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokenIssuer creates an issuer. A non-positive ttl falls back to DefaultTokenTTL.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: "listing-portal",
		now:    time.Now,
	}
}

// TTL returns the configured token lifetime.
func (s *TokenIssuer) TTL() time.Duration {
	return s.ttl
}

// Issue mints a token for the account using the configured lifetime.
func (s *TokenIssuer) Issue(accountID, role, email string) (string, time.Time, error) {
	return s.IssueWithTTL(accountID, role, email, s.ttl)
}

// IssueWithTTL mints a token with an explicit lifetime.
func (s *TokenIssuer) IssueWithTTL(accountID, role, email string, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(ttl)

	claims := &Claims{
		Role:  role,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature, algorithm and expiry and returns the claims.
// Every failure is reported as an unauthorized error.
func (s *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, &apperr.Error{
			Kind:    apperr.KindUnauthorized,
			Message: "invalid_or_expired",
			Err:     fmt.Errorf("%w: %v", ErrInvalidToken, err),
		}
	}
	if claims.Subject == "" || claims.Role == "" {
		return nil, &apperr.Error{Kind: apperr.KindUnauthorized, Message: "invalid_or_expired", Err: ErrInvalidToken}
	}
	return claims, nil
}
