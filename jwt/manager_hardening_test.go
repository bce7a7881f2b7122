package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func TestIssueAndParse(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager(Config{TTL: time.Hour, SigningMethod: MethodEd25519, PrivateKey: priv, PublicKey: pub, Issuer: "fisio"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, ttl, err := m.Issue("u1", "ana@x.io")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if ttl != time.Hour {
		t.Fatalf("expected ttl 1h, got %s", ttl)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UID != "u1" || claims.Email != "ana@x.io" || claims.Subject != "u1" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestParseRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := Claims{UID: "u1", RegisteredClaims: gjwt.RegisteredClaims{ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute))}}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte("secret-secret-secret-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := m.Parse(token); err == nil {
		t.Fatal("expected wrong algorithm to be rejected")
	}
}

func TestParseIssuerAudienceAndLeeway(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager(Config{
		TTL:           time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "fisio",
		Audience:      "api",
		Leeway:        30 * time.Second,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	sign := func(c Claims) string {
		s, err := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, c).SignedString(priv)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}

	wrongIssuer := Claims{UID: "u1", RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "other",
		Audience:  gjwt.ClaimStrings{"api"},
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	if _, err := m.Parse(sign(wrongIssuer)); err == nil {
		t.Fatal("expected wrong issuer to fail")
	}

	wrongAudience := Claims{UID: "u1", RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "fisio",
		Audience:  gjwt.ClaimStrings{"other-api"},
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	if _, err := m.Parse(sign(wrongAudience)); err == nil {
		t.Fatal("expected wrong audience to fail")
	}

	withinLeeway := Claims{UID: "u1", RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "fisio",
		Audience:  gjwt.ClaimStrings{"api"},
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(-15 * time.Second)),
	}}
	if _, err := m.Parse(sign(withinLeeway)); err != nil {
		t.Fatalf("expected token within leeway to pass: %v", err)
	}

	expired := Claims{UID: "u1", RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "fisio",
		Audience:  gjwt.ClaimStrings{"api"},
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(-2 * time.Minute)),
	}}
	if _, err := m.Parse(sign(expired)); err == nil {
		t.Fatal("expected expired token to fail")
	}

	noExpiry := Claims{UID: "u1", RegisteredClaims: gjwt.RegisteredClaims{Issuer: "fisio", Audience: gjwt.ClaimStrings{"api"}}}
	if _, err := m.Parse(sign(noExpiry)); err == nil {
		t.Fatal("expected token without exp to fail")
	}
}

func TestParseUnknownKidFails(t *testing.T) {
	m, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte("shared-secret-value"), KeyID: "k1"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := Claims{UID: "u1", RegisteredClaims: gjwt.RegisteredClaims{ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute))}}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims)
	tok.Header["kid"] = "k2"
	token, err := tok.SignedString([]byte("shared-secret-value"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := m.Parse(token); err == nil {
		t.Fatal("expected unknown kid failure")
	}

	good, _, err := m.Issue("u1", "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Parse(good); err != nil {
		t.Fatalf("expected known kid token to pass: %v", err)
	}
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	pub, _ := newEdKeys(t)
	bad := []Config{
		{TTL: 0, SigningMethod: MethodHS256, PrivateKey: []byte("k")},
		{TTL: time.Minute, SigningMethod: MethodHS256},
		{TTL: time.Minute, SigningMethod: MethodEd25519},
		{TTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: []byte("short")},
		{TTL: time.Minute, SigningMethod: "rs256", PublicKey: pub},
		{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte("k"), Leeway: time.Hour},
	}
	for i, cfg := range bad {
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("config %d: expected error", i)
		}
	}
}

func TestExpiresAt(t *testing.T) {
	m, err := NewManager(Config{TTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: []byte("shared-secret-value")})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token, _, err := m.Issue("u1", "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	exp, ok := ExpiresAt(token)
	if !ok {
		t.Fatal("expected exp to be readable")
	}
	if d := time.Until(exp); d < 59*time.Minute || d > time.Hour+time.Second {
		t.Fatalf("unexpected exp %s", exp)
	}

	for _, opaque := range []string{"", "tok-123", "a.b.c"} {
		if _, ok := ExpiresAt(opaque); ok {
			t.Fatalf("expected %q to report unknown expiry", opaque)
		}
	}
}
