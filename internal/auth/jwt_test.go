package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndValidateToken(t *testing.T) {
	svc := NewService("test-secret")

	token, err := svc.GenerateAccessToken("user-1", "alice", TierPro)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("failed to validate token: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("expected subject user-1, got %s", claims.Subject)
	}
	if claims.Username != "alice" {
		t.Errorf("expected username alice, got %s", claims.Username)
	}
	if claims.Tier != TierPro {
		t.Errorf("expected tier pro, got %s", claims.Tier)
	}
}

func TestGenerateAccessToken_EmptyUserID(t *testing.T) {
	svc := NewService("test-secret")
	if _, err := svc.GenerateAccessToken("", "alice", TierFree); !errors.Is(err, ErrEmptyUserID) {
		t.Errorf("expected ErrEmptyUserID, got %v", err)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	svc := NewService("test-secret")
	token, err := svc.GenerateAccessToken("user-1", "alice", TierFree)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	other := NewService("other-secret")
	if _, err := other.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateToken_Garbage(t *testing.T) {
	svc := NewService("test-secret")
	for _, token := range []string{"", "garbage", "a.b.c"} {
		if _, err := svc.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("token %q: expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestValidateToken_Expired(t *testing.T) {
	svc := NewService("test-secret")

	// Mint an already-expired token beyond the validation leeway.
	past := time.Now().Add(-2 * time.Hour)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	if _, err := svc.ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestValidateToken_RejectsNoneAlgorithm(t *testing.T) {
	svc := NewService("test-secret")

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	if _, err := svc.ValidateToken(token); err == nil {
		t.Error("expected rejection of alg=none token")
	}
}

func TestValidateToken_KeyRotation(t *testing.T) {
	oldSvc := NewService("old-secret")
	token, err := oldSvc.GenerateAccessToken("user-1", "alice", TierFree)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	// After rotation the old token still validates.
	rotated := NewServiceWithRotation("new-secret", "old-secret")
	claims, err := rotated.ValidateToken(token)
	if err != nil {
		t.Fatalf("expected old token to validate during rotation, got %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("expected subject user-1, got %s", claims.Subject)
	}

	// Without the previous key it is rejected.
	fresh := NewServiceWithRotation("new-secret", "")
	if _, err := fresh.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken after rotation completes, got %v", err)
	}
}

func TestTierOf(t *testing.T) {
	tests := []struct {
		name   string
		claims *Claims
		want   string
	}{
		{"nil claims", nil, TierFree},
		{"empty tier", &Claims{}, TierFree},
		{"free tier", &Claims{Tier: "free"}, TierFree},
		{"pro tier", &Claims{Tier: "pro"}, TierPro},
		{"unknown tier", &Claims{Tier: "enterprise"}, TierFree},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TierOf(tt.claims); got != tt.want {
				t.Errorf("TierOf = %s, want %s", got, tt.want)
			}
		})
	}
}
