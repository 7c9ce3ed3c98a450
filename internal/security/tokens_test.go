package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"
)

func TestTokenProvider_IssueAndValidate(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	token, exp, err := p.IssueAccess("alice", "Alice")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if token == "" || exp.Before(time.Now()) {
		t.Fatalf("token = %q exp = %v", token, exp)
	}
	id, name, err := p.ValidateAccess(token)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if id != "alice" || name != "Alice" {
		t.Errorf("ValidateAccess = %q/%q, want alice/Alice", id, name)
	}
}

func TestTokenProvider_NameFallsBackToSubject(t *testing.T) {
	p, _ := NewTestTokenProvider()
	token, _, err := p.IssueAccess("bob", "")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	_, name, err := p.ValidateAccess(token)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if name != "bob" {
		t.Errorf("name = %q, want bob", name)
	}
}

func TestTokenProvider_ValidateAccessInvalid(t *testing.T) {
	p, _ := NewTestTokenProvider()
	if _, _, err := p.ValidateAccess("invalid-token"); err != ErrInvalidToken {
		t.Errorf("ValidateAccess = %v, want ErrInvalidToken", err)
	}
}

func TestTokenProvider_WrongIssuerOrAudience(t *testing.T) {
	signer, _ := ParsePrivateKey(testPrivateKeyPEM)
	token, _, err := NewTokenProvider(signer, nil, testIssuer, testAudience, time.Minute).IssueAccess("alice", "Alice")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	for _, v := range []*TokenProvider{
		NewTokenProvider(nil, signer.Public(), "other-issuer", testAudience, time.Minute),
		NewTokenProvider(nil, signer.Public(), testIssuer, "other-audience", time.Minute),
	} {
		if _, _, err := v.ValidateAccess(token); err != ErrInvalidToken {
			t.Errorf("ValidateAccess = %v, want ErrInvalidToken", err)
		}
	}
}

func TestTokenProvider_Expired(t *testing.T) {
	signer, _ := ParsePrivateKey(testPrivateKeyPEM)
	p := NewTokenProvider(signer, nil, testIssuer, testAudience, -time.Minute)
	token, _, err := p.IssueAccess("alice", "Alice")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, _, err := p.ValidateAccess(token); err != ErrInvalidToken {
		t.Errorf("ValidateAccess expired = %v, want ErrInvalidToken", err)
	}
}

func TestTokenProvider_ForeignKey(t *testing.T) {
	other, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	foreign := NewTokenProvider(other, nil, testIssuer, testAudience, time.Minute)
	token, _, err := foreign.IssueAccess("mallory", "Mallory")
	if err != nil {
		t.Fatalf("IssueAccess ES256: %v", err)
	}
	p, _ := NewTestTokenProvider()
	if _, _, err := p.ValidateAccess(token); err != ErrInvalidToken {
		t.Errorf("ValidateAccess foreign = %v, want ErrInvalidToken", err)
	}
	if _, _, err := foreign.ValidateAccess(token); err != nil {
		t.Errorf("ES256 round trip: %v", err)
	}
}

func TestTokenProvider_VerifyOnlyCannotIssue(t *testing.T) {
	pub, _ := ParsePublicKey(testPublicKeyPEM)
	p := NewTokenProvider(nil, pub, testIssuer, testAudience, time.Minute)
	if _, _, err := p.IssueAccess("alice", "Alice"); err != ErrSigningDisabled {
		t.Errorf("IssueAccess = %v, want ErrSigningDisabled", err)
	}
}
