package authn

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"

	"github.com/epicrunze/evocable/internal/apperr"
)

// TokenType distinguishes a session token from a password-reset token so
// one can never be accepted where the other is expected.
type TokenType string

const (
	TokenSession       TokenType = "session"
	TokenPasswordReset TokenType = "password_reset"
)

// Claims is the signed bearer envelope: {sub, username, iat, exp, jti, type}.
type Claims struct {
	jwt.StandardClaims
	Username string    `json:"username"`
	Type     TokenType `json:"type"`
}

// Issuer signs and parses tokens with a process-wide secret loaded at
// startup, mirroring auth-service's module-level jwtSecretKey but passed
// explicitly instead of captured as a package global.
type Issuer struct {
	secret []byte
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret)}
}

// IssueSession mints a session token with the given time-to-live (24h by
// default, 30 days when the caller honors "remember me").
func (i *Issuer) IssueSession(userID uint, username string, ttl time.Duration) (string, time.Time, error) {
	return i.issue(userID, username, TokenSession, ttl)
}

// IssueReset mints a short-lived password-reset token.
func (i *Issuer) IssueReset(userID uint, username string, ttl time.Duration) (string, time.Time, error) {
	return i.issue(userID, username, TokenPasswordReset, ttl)
}

func (i *Issuer) issue(userID uint, username string, typ TokenType, ttl time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   uintToStr(userID),
			IssuedAt:  now.Unix(),
			ExpiresAt: exp.Unix(),
			Id:        uuid.New().String(),
		},
		Username: username,
		Type:     typ,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	return signed, exp, err
}

// Parse validates the token's signature and expiry and requires it to
// carry the expected type, rejecting a reset token on a session-only
// endpoint and vice versa.
func (i *Issuer) Parse(tokenString string, want TokenType) (*Claims, *apperr.Error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		// Ensure that the token method conforms to what you expect:
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperr.New(apperr.Unauthenticated, "invalid or expired token")
	}
	if claims.Type != want {
		return nil, apperr.New(apperr.Unauthenticated, "token type mismatch")
	}
	return claims, nil
}

func uintToStr(v uint) string {
	if v == 0 {
		return "0"
	}
	digits := make([]byte, 0, 10)
	for v > 0 {
		digits = append([]byte{byte('0' + v%10)}, digits...)
		v /= 10
	}
	return string(digits)
}
