package utils

import (
	"testing"
)

func TestJwtRoundTrip(t *testing.T) {
	t.Setenv("API_SECRET", "unit-test-secret")
	t.Setenv("TOKEN_HOUR_LIFESPAN", "1")

	token, err := JwtGenerate(12, RoleAdmin)
	if err != nil {
		t.Fatalf("JwtGenerate: %v", err)
	}
	claims, err := JwtClaims(token)
	if err != nil {
		t.Fatalf("JwtClaims: %v", err)
	}
	if claims.ID != 12 || claims.Role != RoleAdmin {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestJwtClaimsRejectsForeignSecret(t *testing.T) {
	t.Setenv("TOKEN_HOUR_LIFESPAN", "1")
	t.Setenv("API_SECRET", "issuer-secret")
	token, err := JwtGenerate(1, RoleAdmin)
	if err != nil {
		t.Fatalf("JwtGenerate: %v", err)
	}

	t.Setenv("API_SECRET", "other-secret")
	if _, err := JwtClaims(token); err == nil {
		t.Fatalf("token signed with another secret accepted")
	}
}

func TestJwtGenerateRequiresLifespan(t *testing.T) {
	t.Setenv("TOKEN_HOUR_LIFESPAN", "")
	if _, err := JwtGenerate(1, RoleAdmin); err == nil {
		t.Fatalf("expected error without TOKEN_HOUR_LIFESPAN")
	}
}

func TestJwtClaimsRejectsGarbage(t *testing.T) {
	if _, err := JwtClaims("not-a-jwt"); err == nil {
		t.Fatalf("garbage token accepted")
	}
}
