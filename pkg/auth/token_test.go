package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nordtolk/nordtolk-backend/pkg/config"
	"github.com/nordtolk/nordtolk-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "nordtolk",
		ExpirationMinutes: 30,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()
	userID := uuid.New()

	payload := AccessTokenPayload{
		UserID: userID,
		Role:   enums.UserRoleInterpreter,
	}

	token, err := MintAccessToken(cfg, now, payload)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}

	if claims.UserID != userID {
		t.Fatalf("expected user_id %s, got %s", userID, claims.UserID)
	}
	if claims.Role != enums.UserRoleInterpreter {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}

	exp := now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)
	diff := claims.ExpiresAt.Sub(exp)
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Second {
		t.Fatalf("expected exp roughly %v, got %v (diff %v)", exp.UTC(), claims.ExpiresAt.UTC(), diff)
	}
}

func TestMintAccessToken_InvalidRole(t *testing.T) {
	_, err := MintAccessToken(testJWTConfig(), time.Now(), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRole("ghost"),
	})
	if err == nil {
		t.Fatal("expected error for invalid role")
	}
}

func TestParseAccessToken_InvalidSignature(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRoleCustomer,
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	if _, err := ParseAccessToken(cfg, token+"x"); err == nil {
		t.Fatal("expected invalid signature error")
	}
}

func TestParseAccessTokenAllowExpired(t *testing.T) {
	cfg := testJWTConfig()
	past := time.Now().Add(-2 * time.Hour)
	token, err := MintAccessToken(cfg, past, AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRoleAdmin,
		JTI:    "refresh-jti",
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatal("expected expired token to fail strict parse")
	}

	claims, err := ParseAccessTokenAllowExpired(cfg, token)
	if err != nil {
		t.Fatalf("allow-expired parse: %v", err)
	}
	if claims.ID != "refresh-jti" {
		t.Fatalf("expected jti to round-trip, got %q", claims.ID)
	}
}
