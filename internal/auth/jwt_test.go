package auth

import "testing"

func TestTokenRoundTrip(t *testing.T) {
	service := NewTokenService("test-secret")

	token, err := service.GenerateToken("panel-1")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	claims, err := service.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if claims.ClientID != "panel-1" {
		t.Errorf("client id = %q, want panel-1", claims.ClientID)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenService("secret-a").GenerateToken("panel-1")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if _, err := NewTokenService("secret-b").ValidateToken(token); err == nil {
		t.Error("token signed with a different secret should be rejected")
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	if _, err := NewTokenService("s").ValidateToken("not.a.token"); err == nil {
		t.Error("malformed token should be rejected")
	}
}
