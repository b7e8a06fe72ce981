package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HerbHall/wardwatch/internal/auth"
	"github.com/HerbHall/wardwatch/pkg/clearance"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wardwatch.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "wardwatch ") {
		t.Errorf("version output = %q", out)
	}
}

func TestTokenCommand_IssuesValidToken(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwt_secret: "+testSecret+"\n  issuer: ward-test\n")

	out, err := execute(t, "--config", path, "token", "--user", "st-0002", "--clearance", "L3")
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	tokens, err := auth.NewTokenService([]byte(testSecret), "ward-test", 0)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	claims, err := tokens.ValidateAccessToken(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("issued token does not validate: %v", err)
	}
	if claims.Subject != "st-0002" {
		t.Errorf("subject = %q, want st-0002", claims.Subject)
	}
	if claims.Clearance != clearance.L3 {
		t.Errorf("clearance = %q, want L3", claims.Clearance)
	}
}

func TestTokenCommand_RequiresSecret(t *testing.T) {
	path := writeConfig(t, "auth:\n  issuer: ward-test\n")

	_, err := execute(t, "--config", path, "token", "--user", "st-0002")
	if !errors.Is(err, errNoSecret) {
		t.Fatalf("err = %v, want errNoSecret", err)
	}
}

func TestTokenCommand_RejectsBadClearance(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwt_secret: "+testSecret+"\n")

	if _, err := execute(t, "--config", path, "token", "--user", "st-0002", "--clearance", "L9"); err == nil {
		t.Fatal("expected error for unknown clearance level")
	}
}
