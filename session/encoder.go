package session

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Format versions. v1 and v2 use one-byte field lengths; v3 uses uvarint
// lengths. v1 has no CREFITO field.
const (
	identityFormatVersionV1      = 1
	identityFormatVersionV2      = 2
	identityFormatVersionCurrent = 3

	// MaxFieldLen is the largest identity field, in bytes, the store accepts.
	MaxFieldLen = 4096
)

// CurrentIdentityVersion is the format version written by [EncodeIdentity].
const CurrentIdentityVersion = identityFormatVersionCurrent

// ErrMalformed is returned when a stored identity cannot be decoded.
var ErrMalformed = errors.New("malformed stored identity")

// ErrFieldTooLong is returned for an identity field longer than [MaxFieldLen].
var ErrFieldTooLong = errors.New("identity field too long")

type identityField struct {
	name  string
	value string
}

func identityFields(id Identity) [4]identityField {
	return [4]identityField{
		{"id", id.ID},
		{"username", id.Username},
		{"email", id.Email},
		{"crefito_id", id.CrefitoID},
	}
}

// CheckEncodable reports whether id fits the storage format.
func CheckEncodable(id Identity) error {
	for _, field := range identityFields(id) {
		if len(field.value) > MaxFieldLen {
			return fmt.Errorf("%w: %s has %d bytes, limit %d", ErrFieldTooLong, field.name, len(field.value), MaxFieldLen)
		}
	}
	return nil
}

// EncodeIdentity serializes an identity in the current binary format.
func EncodeIdentity(id Identity) ([]byte, error) {
	if err := CheckEncodable(id); err != nil {
		return nil, err
	}

	fields := identityFields(id)
	size := 1
	for _, field := range fields {
		size += binary.MaxVarintLen16 + len(field.value)
	}
	buf := make([]byte, 0, size)

	buf = append(buf, identityFormatVersionCurrent)
	for _, field := range fields {
		buf = binary.AppendUvarint(buf, uint64(len(field.value)))
		buf = append(buf, field.value...)
	}
	return buf, nil
}

// DecodeIdentity parses an identity written by [EncodeIdentity] or a JSON object
// written by the mobile client. The result is checked with [Identity.Valid].
func DecodeIdentity(data []byte) (Identity, error) {
	if len(data) == 0 {
		return Identity{}, fmt.Errorf("%w: empty payload", ErrMalformed)
	}

	var (
		id  Identity
		err error
	)
	if data[0] == '{' {
		id, err = decodeLegacyJSON(data)
	} else {
		id, err = decodeBinary(data)
	}
	if err != nil {
		return Identity{}, err
	}
	if !id.Valid() {
		return Identity{}, fmt.Errorf("%w: missing id or username", ErrMalformed)
	}
	return id, nil
}

func decodeBinary(data []byte) (Identity, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var read func(*bytes.Reader) (string, error)
	switch version {
	case identityFormatVersionV1, identityFormatVersionV2:
		read = readByteField
	case identityFormatVersionCurrent:
		read = readUvarintField
	default:
		return Identity{}, fmt.Errorf("%w: unsupported identity version %d", ErrMalformed, version)
	}

	var id Identity
	if id.ID, err = read(reader); err != nil {
		return Identity{}, err
	}
	if id.Username, err = read(reader); err != nil {
		return Identity{}, err
	}
	if id.Email, err = read(reader); err != nil {
		return Identity{}, err
	}
	if version != identityFormatVersionV1 {
		if id.CrefitoID, err = read(reader); err != nil {
			return Identity{}, err
		}
	}

	if reader.Len() != 0 {
		return Identity{}, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, reader.Len())
	}
	return id, nil
}

func readByteField(reader *bytes.Reader) (string, error) {
	n, err := reader.ReadByte()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return readN(reader, uint64(n))
}

func readUvarintField(reader *bytes.Reader) (string, error) {
	n, err := binary.ReadUvarint(reader)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if n > MaxFieldLen {
		return "", fmt.Errorf("%w: field length %d exceeds %d", ErrMalformed, n, MaxFieldLen)
	}
	return readN(reader, n)
}

func readN(reader *bytes.Reader, n uint64) (string, error) {
	if n > uint64(reader.Len()) {
		return "", fmt.Errorf("%w: field length %d exceeds remaining %d bytes", ErrMalformed, n, reader.Len())
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(reader, raw); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return string(raw), nil
}

// legacyIdentity accepts the numeric ids the mobile client sometimes stored.
type legacyIdentity struct {
	ID        json.RawMessage `json:"id"`
	Username  string          `json:"username"`
	Email     string          `json:"email"`
	CrefitoID string          `json:"crefito_id"`
}

func decodeLegacyJSON(data []byte) (Identity, error) {
	var raw legacyIdentity
	if err := json.Unmarshal(data, &raw); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	id := Identity{
		Username:  raw.Username,
		Email:     raw.Email,
		CrefitoID: raw.CrefitoID,
	}
	if len(raw.ID) > 0 {
		var s string
		if err := json.Unmarshal(raw.ID, &s); err == nil {
			id.ID = s
		} else {
			var n json.Number
			if err := json.Unmarshal(raw.ID, &n); err != nil {
				return Identity{}, fmt.Errorf("%w: id is neither string nor number", ErrMalformed)
			}
			id.ID = n.String()
		}
	}
	return id, nil
}
