package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DefaultPrefix namespaces session keys the same way the mobile client did.
const DefaultPrefix = "@Auth:"

// ErrIncomplete is returned by [Store.Load] when only one half of the
// credential/identity pair is stored.
var ErrIncomplete = errors.New("incomplete stored session")

// Store maps a [Session] onto two keys of a [Backend].
//
//	<prefix>token     plain credential string
//	<prefix>userData  EncodeIdentity output
type Store struct {
	backend Backend
	prefix  string
}

// NewStore creates a [Store] over backend. An empty prefix selects [DefaultPrefix].
func NewStore(backend Backend, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{
		backend: backend,
		prefix:  prefix,
	}
}

// TokenKey is the backend key holding the credential.
func (s *Store) TokenKey() string {
	return s.prefix + "token"
}

// IdentityKey is the backend key holding the serialized identity.
func (s *Store) IdentityKey() string {
	return s.prefix + "userData"
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend {
	return s.backend
}

// Load reads both keys and returns an authenticated [Session].
//
// Errors: [ErrNotFound] when nothing is stored, [ErrIncomplete] when one key is
// missing, [ErrMalformed] when the identity does not decode, and
// [ErrBackendUnavailable] for I/O failures.
func (s *Store) Load(ctx context.Context) (Session, error) {
	token, tokenErr := s.backend.Get(ctx, s.TokenKey())
	if tokenErr != nil && !errors.Is(tokenErr, ErrNotFound) {
		return Session{}, tokenErr
	}
	raw, identityErr := s.backend.Get(ctx, s.IdentityKey())
	if identityErr != nil && !errors.Is(identityErr, ErrNotFound) {
		return Session{}, identityErr
	}

	// The credential is opaque: it is returned byte for byte as Save wrote it.
	credential := string(token)
	hasToken := tokenErr == nil && strings.TrimSpace(credential) != ""
	hasIdentity := identityErr == nil && len(raw) > 0

	switch {
	case !hasToken && !hasIdentity:
		return Session{}, ErrNotFound
	case !hasToken:
		return Session{}, fmt.Errorf("%w: credential missing", ErrIncomplete)
	case !hasIdentity:
		return Session{}, fmt.Errorf("%w: identity missing", ErrIncomplete)
	}

	identity, err := DecodeIdentity(raw)
	if err != nil {
		return Session{}, err
	}
	return Authenticated(credential, identity), nil
}

// Save writes the credential and identity in one backend batch.
func (s *Store) Save(ctx context.Context, credential string, identity Identity) error {
	if strings.TrimSpace(credential) == "" {
		return errors.New("credential is required")
	}
	encoded, err := EncodeIdentity(identity)
	if err != nil {
		return err
	}

	return s.backend.PutAll(ctx, map[string][]byte{
		s.TokenKey():    []byte(credential),
		s.IdentityKey(): encoded,
	})
}

// Clear deletes both keys. Clearing an empty store succeeds.
func (s *Store) Clear(ctx context.Context) error {
	return s.backend.DeleteAll(ctx, s.TokenKey(), s.IdentityKey())
}
