package authn

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
)

func TestIssueAndParseSession(t *testing.T) {
	issuer := NewIssuer("test-secret")
	token, _, err := issuer.IssueSession(42, "alice", time.Hour)
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	claims, aerr := issuer.Parse(token, TokenSession)
	if aerr != nil {
		t.Fatalf("Parse: %v", aerr)
	}
	if claims.Username != "alice" {
		t.Fatalf("expected username alice, got %s", claims.Username)
	}
}

func TestSessionTokenRejectedAsReset(t *testing.T) {
	issuer := NewIssuer("test-secret")
	token, _, _ := issuer.IssueSession(1, "bob", time.Hour)
	if _, aerr := issuer.Parse(token, TokenPasswordReset); aerr == nil {
		t.Fatal("expected a session token to be rejected where a reset token is required")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	issuer := NewIssuer("test-secret")
	token, _, _ := issuer.IssueSession(1, "carol", -time.Minute)
	if _, aerr := issuer.Parse(token, TokenSession); aerr == nil {
		t.Fatal("expected an already-expired token to be rejected")
	}
}

func TestParseRejectsUnexpectedSigningMethod(t *testing.T) {
	issuer := NewIssuer("test-secret")
	claims := Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   "1",
			ExpiresAt: time.Now().Add(time.Hour).Unix(),
		},
		Username: "mallory",
		Type:     TokenSession,
	}
	// Sign with "none" so an implementation that skips the method check
	// would trust the secret lookup was never needed.
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	unsigned, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign with none: %v", err)
	}
	if _, aerr := issuer.Parse(unsigned, TokenSession); aerr == nil {
		t.Fatal("expected a token signed with alg=none to be rejected")
	}
}
