package middleware

import (
	"testing"
)

func TestGenerateAndParseToken(t *testing.T) {
	InitJWT("test-secret", 1)

	token, err := GenerateToken(7, "alice", "user")
	if err != nil {
		t.Fatalf("GenerateToken() returned error: %v", err)
	}

	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken() returned error: %v", err)
	}
	if claims.UserID != 7 || claims.Username != "alice" || claims.Roles != "user" {
		t.Errorf("ParseToken() claims = %+v", claims)
	}
	if claims.Issuer != "chatgate" {
		t.Errorf("Issuer = %q, want chatgate", claims.Issuer)
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	InitJWT("test-secret", 1)

	if _, err := ParseToken("not-a-token"); err == nil {
		t.Errorf("ParseToken(garbage) = nil error, want error")
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	InitJWT("secret-a", 1)
	token, err := GenerateToken(1, "admin", "admin")
	if err != nil {
		t.Fatalf("GenerateToken() returned error: %v", err)
	}

	InitJWT("secret-b", 1)
	if _, err := ParseToken(token); err == nil {
		t.Errorf("ParseToken() with different secret = nil error, want error")
	}
}
