package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/HerbHall/wardwatch/pkg/clearance"
)

const testSecret = "test-secret-key-32bytes-long!!"

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService([]byte(testSecret), "wardwatch", 15*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

func TestIssueAndValidateAccessToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.IssueAccessToken("st-0002", clearance.L3)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := ts.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if claims.Subject != "st-0002" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "st-0002")
	}
	if claims.Clearance != clearance.L3 {
		t.Errorf("Clearance = %q, want L3", claims.Clearance)
	}
	if claims.Issuer != "wardwatch" {
		t.Errorf("Issuer = %q, want %q", claims.Issuer, "wardwatch")
	}
}

func TestNewTokenService_ShortSecret(t *testing.T) {
	if _, err := NewTokenService([]byte("short"), "", 0); err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestIssueAccessToken_RejectsBadInput(t *testing.T) {
	ts := newTestTokenService(t)
	if _, err := ts.IssueAccessToken("", clearance.L1); err == nil {
		t.Error("expected error for empty user id")
	}
	if _, err := ts.IssueAccessToken("st-0001", "L5"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	ts1, _ := NewTokenService([]byte("secret-one-is-32-bytes-long!!!!"), "wardwatch", time.Minute)
	ts2, _ := NewTokenService([]byte("secret-two-is-32-bytes-long!!!!"), "wardwatch", time.Minute)

	token, err := ts1.IssueAccessToken("st-0001", clearance.L4)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if _, err := ts2.ValidateAccessToken(token); err == nil {
		t.Error("expected error validating with wrong secret")
	}
}

func TestValidateAccessToken_WrongIssuer(t *testing.T) {
	other, _ := NewTokenService([]byte(testSecret), "someone-else", time.Minute)
	token, err := other.IssueAccessToken("st-0001", clearance.L4)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if _, err := newTestTokenService(t).ValidateAccessToken(token); err == nil {
		t.Error("expected error for foreign issuer")
	}
}

func TestValidateAccessToken_Expired(t *testing.T) {
	ts := newTestTokenService(t)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "st-0001",
			Issuer:    "wardwatch",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
		Clearance: clearance.L4,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ts.ValidateAccessToken(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestValidateAccessToken_RejectsNoneAlgorithm(t *testing.T) {
	ts := newTestTokenService(t)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "st-0001",
			Issuer:    "wardwatch",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		Clearance: clearance.L4,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ts.ValidateAccessToken(token); err == nil {
		t.Error("expected error for unsigned token")
	}
}

func TestValidateAccessToken_Garbage(t *testing.T) {
	ts := newTestTokenService(t)
	for _, tok := range []string{"", "not-a-jwt", strings.Repeat("a.", 3)} {
		if _, err := ts.ValidateAccessToken(tok); err == nil {
			t.Errorf("expected error for %q", tok)
		}
	}
}
