package session

import (
	"errors"
	"strings"
	"testing"
)

func TestEncodeDecodeIdentity(t *testing.T) {
	want := Identity{ID: "u1", Username: "ana", Email: "ana@clinic.example", CrefitoID: "CREFITO-3/12345-F"}

	data, err := EncodeIdentity(want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if data[0] != CurrentIdentityVersion {
		t.Fatalf("expected version byte %d, got %d", CurrentIdentityVersion, data[0])
	}

	got, err := DecodeIdentity(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestEncodeRejectsOversizedField(t *testing.T) {
	_, err := EncodeIdentity(Identity{ID: "u1", Username: strings.Repeat("a", MaxFieldLen+1)})
	if !errors.Is(err, ErrFieldTooLong) {
		t.Fatalf("expected ErrFieldTooLong, got %v", err)
	}
	if err := CheckEncodable(Identity{ID: "u1", Username: "ana", Email: strings.Repeat("e", MaxFieldLen+1)}); !errors.Is(err, ErrFieldTooLong) {
		t.Fatalf("expected CheckEncodable to reject long email, got %v", err)
	}
}

func TestEncodeDecodeLongFields(t *testing.T) {
	want := Identity{
		ID:        strings.Repeat("i", 300),
		Username:  "ana",
		Email:     strings.Repeat("e", 256) + "@clinic.example",
		CrefitoID: strings.Repeat("c", MaxFieldLen),
	}

	got, err := DecodeIdentity(mustEncode(t, want))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != want {
		t.Fatal("long fields did not survive the round trip")
	}
}

func TestDecodeV2ByteLengths(t *testing.T) {
	data := []byte{identityFormatVersionV2, 2, 'u', '1', 3, 'a', 'n', 'a', 0, 2, 'c', '7'}

	got, err := DecodeIdentity(data)
	if err != nil {
		t.Fatalf("decode v2: %v", err)
	}
	if got != (Identity{ID: "u1", Username: "ana", CrefitoID: "c7"}) {
		t.Fatalf("unexpected identity %+v", got)
	}
}

func TestDecodeV1WithoutRegistrationID(t *testing.T) {
	data := []byte{identityFormatVersionV1, 2, 'u', '1', 3, 'a', 'n', 'a', 0}

	got, err := DecodeIdentity(data)
	if err != nil {
		t.Fatalf("decode v1: %v", err)
	}
	if got.ID != "u1" || got.Username != "ana" || got.Email != "" || got.CrefitoID != "" {
		t.Fatalf("unexpected identity %+v", got)
	}
}

func TestDecodeLegacyJSON(t *testing.T) {
	cases := map[string]Identity{
		`{"id":"u1","username":"ana","email":"ana@x.io","crefito_id":"123"}`: {ID: "u1", Username: "ana", Email: "ana@x.io", CrefitoID: "123"},
		`{"id":42,"username":"bruno"}`:                                      {ID: "42", Username: "bruno"},
	}
	for raw, want := range cases {
		got, err := DecodeIdentity([]byte(raw))
		if err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
		if got != want {
			t.Fatalf("decode %s: expected %+v, got %+v", raw, want, got)
		}
	}
}

func TestDecodeMalformed(t *testing.T) {
	inputs := [][]byte{
		nil,
		{99},
		{identityFormatVersionCurrent},
		{identityFormatVersionCurrent, 5, 'a'},
		{identityFormatVersionCurrent, 0, 0, 0, 0},
		{identityFormatVersionCurrent, 0xFF, 0xFF, 0x03},
		{identityFormatVersionCurrent, 0x81, 0x20, 'u'},
		{identityFormatVersionV2, 2, 'u', '1', 3, 'a', 'n', 'a', 0},
		append(mustEncode(t, Identity{ID: "u1", Username: "ana"}), 0xFF),
		[]byte(`{"id":"u1"`),
		[]byte(`{"id":"u1","username":""}`),
		[]byte(`{"id":true,"username":"ana"}`),
	}
	for i, in := range inputs {
		if _, err := DecodeIdentity(in); !errors.Is(err, ErrMalformed) {
			t.Fatalf("input %d: expected ErrMalformed, got %v", i, err)
		}
	}
}

func mustEncode(t *testing.T, id Identity) []byte {
	t.Helper()
	data, err := EncodeIdentity(id)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return data
}
