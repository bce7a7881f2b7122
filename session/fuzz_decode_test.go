package session

import "testing"

// FuzzDecodeIdentity feeds arbitrary bytes to the identity decoder.
// It must never panic and must only return valid identities.
func FuzzDecodeIdentity(f *testing.F) {
	encoded, err := EncodeIdentity(Identity{ID: "u1", Username: "ana", Email: "ana@x.io", CrefitoID: "c1"})
	if err == nil {
		f.Add(encoded)
		f.Add(encoded[:len(encoded)/2])
	}
	f.Add([]byte{})
	f.Add([]byte{0})
	f.Add([]byte{identityFormatVersionV1})
	f.Add([]byte{255, 255, 255})
	f.Add([]byte(`{"id":"u1","username":"ana"}`))
	f.Add([]byte(`{"id":`))

	f.Fuzz(func(t *testing.T, data []byte) {
		id, err := DecodeIdentity(data)
		if err == nil && !id.Valid() {
			t.Fatalf("decoder accepted invalid identity %+v", id)
		}
	})
}
