package auth

import (
	"testing"
	"time"
)

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT("secret", "0:abc", "testnet", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	claims, err := ParseJWT("secret", token)
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if claims.Address != "0:abc" {
		t.Errorf("address = %q", claims.Address)
	}
	if claims.Network != "testnet" {
		t.Errorf("network = %q", claims.Network)
	}
}

func TestJWTWrongSecret(t *testing.T) {
	token, err := GenerateJWT("secret", "0:abc", "testnet", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseJWT("other", token); err == nil {
		t.Fatal("token accepted with wrong secret")
	}
}

func TestJWTExpired(t *testing.T) {
	token, err := GenerateJWT("secret", "0:abc", "testnet", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseJWT("secret", token); err == nil {
		t.Fatal("expired token accepted")
	}
}
