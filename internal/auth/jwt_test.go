package auth

import (
	"testing"

	"github.com/lovrop/najdeno/internal/model"
)

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken("secret", 42, "ana@example.com", model.RoleUser)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ValidateToken("secret", token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("expected user id 42, got %d", claims.UserID)
	}
	if claims.Email != "ana@example.com" {
		t.Errorf("expected email ana@example.com, got %q", claims.Email)
	}
	if claims.Role != model.RoleUser {
		t.Errorf("expected role user, got %q", claims.Role)
	}
	if claims.ID == "" {
		t.Error("expected a non-empty JTI")
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, _ := GenerateToken("secret", 1, "ana@example.com", model.RoleUser)

	if _, err := ValidateToken("other-secret", token); err == nil {
		t.Error("expected validation to fail with the wrong secret")
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	if _, err := ValidateToken("secret", "not.a.token"); err == nil {
		t.Error("expected validation to fail for a malformed token")
	}
}

func TestTokensHaveUniqueJTI(t *testing.T) {
	a, _ := GenerateToken("secret", 1, "ana@example.com", model.RoleUser)
	b, _ := GenerateToken("secret", 1, "ana@example.com", model.RoleUser)

	ca, _ := ValidateToken("secret", a)
	cb, _ := ValidateToken("secret", b)
	if ca.ID == cb.ID {
		t.Error("expected each token to carry a unique JTI")
	}
}
