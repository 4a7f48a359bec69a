package auth

import (
	"testing"
	"time"

	"github.com/Arianini/CSSECDV-MCO/internal/domain/enums"
)

func TestGenerateAndParseAccessToken(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Minute)

	token, expiresAt, err := manager.GenerateAccessToken(42, enums.RoleManager)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if token == "" {
		t.Fatalf("expected non-empty token")
	}
	if !expiresAt.After(time.Now()) {
		t.Fatalf("expected future expiry, got %s", expiresAt)
	}

	claims, err := manager.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.AccountID != 42 {
		t.Fatalf("unexpected account id: %d", claims.AccountID)
	}
	if claims.Role != enums.RoleManager {
		t.Fatalf("unexpected role: %s", claims.Role)
	}
	if claims.SID == "" {
		t.Fatalf("expected session id in claims")
	}
}

func TestParseAccessTokenRejectsGarbage(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Minute)

	for _, raw := range []string{"", "  ", "not-a-token", "a.b.c"} {
		if _, err := manager.ParseAccessToken(raw); err == nil {
			t.Fatalf("expected error for token %q", raw)
		}
	}
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	token, _, err := NewJWTManager("secret-a", time.Minute).GenerateAccessToken(7, enums.RoleUser)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	if _, err := NewJWTManager("secret-b", time.Minute).ParseAccessToken(token); err == nil {
		t.Fatalf("expected error for token signed with another secret")
	}
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Minute)
	manager.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }

	token, _, err := manager.GenerateAccessToken(7, enums.RoleUser)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	if _, err := NewJWTManager("test-secret", time.Minute).ParseAccessToken(token); err == nil {
		t.Fatalf("expected error for expired token")
	}
}

func TestGenerateAccessTokenRejectsInvalidPayload(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Minute)

	if _, _, err := manager.GenerateAccessToken(0, enums.RoleUser); err == nil {
		t.Fatalf("expected error for zero account id")
	}
	if _, _, err := manager.GenerateAccessToken(1, enums.Role("owner")); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}
