package password

import (
	"errors"
	"strings"
	"testing"
)

// cheap parameters keep the suite fast.
func testConfig() Config {
	return Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newTestHasher(t *testing.T, cfg Config) *Hasher {
	t.Helper()
	h, err := NewHasher(cfg)
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := newTestHasher(t, testConfig())

	hash, err := h.Hash("fisio-secret")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}

	ok, err := h.Verify("fisio-secret", hash)
	if err != nil || !ok {
		t.Fatalf("expected verification to succeed: ok=%v err=%v", ok, err)
	}

	ok, err = h.Verify("wrong-secret", hash)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatal("expected wrong password verification to fail")
	}
}

func TestHashUsesFreshSalt(t *testing.T) {
	h := newTestHasher(t, testConfig())
	a, _ := h.Hash("same-password")
	b, _ := h.Hash("same-password")
	if a == b {
		t.Fatal("expected distinct hashes for repeated input")
	}
}

func TestNeedsRehash(t *testing.T) {
	weak := newTestHasher(t, testConfig())
	hash, err := weak.Hash("upgrade-me-please")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	stronger := testConfig()
	stronger.Time = 2
	strong := newTestHasher(t, stronger)

	needs, err := strong.NeedsRehash(hash)
	if err != nil || !needs {
		t.Fatalf("expected rehash for weaker parameters: needs=%v err=%v", needs, err)
	}
	needs, err = weak.NeedsRehash(hash)
	if err != nil || needs {
		t.Fatalf("expected no rehash for current parameters: needs=%v err=%v", needs, err)
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	h := newTestHasher(t, testConfig())
	good, err := h.Hash("malformed-base")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	cases := map[string]string{
		"not phc":       "not-a-phc-hash",
		"wrong version": strings.Replace(good, "$v=19$", "$v=18$", 1),
		"wrong algo":    strings.Replace(good, "$argon2id$", "$argon2i$", 1),
		"bad params":    strings.Replace(good, "m=8192,t=1,p=1", "m=8192,t=1", 1),
		"weak memory":   strings.Replace(good, "m=8192", "m=16", 1),
	}
	for name, encoded := range cases {
		if _, err := h.Verify("malformed-base", encoded); !errors.Is(err, ErrMalformedHash) {
			t.Fatalf("%s: expected ErrMalformedHash, got %v", name, err)
		}
	}
}

func TestPasswordLengthBounds(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPasswordBytes = 64
	h := newTestHasher(t, cfg)

	if _, err := h.Hash("short"); !errors.Is(err, ErrPasswordLength) {
		t.Fatalf("expected short password rejection, got %v", err)
	}
	if _, err := h.Hash(strings.Repeat("a", 65)); !errors.Is(err, ErrPasswordLength) {
		t.Fatalf("expected long password rejection, got %v", err)
	}

	exact := strings.Repeat("b", 64)
	hash, err := h.Hash(exact)
	if err != nil {
		t.Fatalf("expected max-length password to be accepted: %v", err)
	}
	if _, err := h.Verify(strings.Repeat("c", 65), hash); !errors.Is(err, ErrPasswordLength) {
		t.Fatalf("expected Verify to reject long password, got %v", err)
	}
}

func TestNewHasherRejectsWeakConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Memory = 1024
	if _, err := NewHasher(cfg); err == nil {
		t.Fatal("expected weak memory to be rejected")
	}
	cfg = testConfig()
	cfg.MinPasswordBytes = 20
	cfg.MaxPasswordBytes = 10
	if _, err := NewHasher(cfg); err == nil {
		t.Fatal("expected inverted length bounds to be rejected")
	}
}
