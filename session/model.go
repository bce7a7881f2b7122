package session

import "strings"

// Status is the lifecycle phase of a [Session].
type Status uint8

const (
	// StatusInitializing is reported until the persisted session has been loaded once.
	StatusInitializing Status = iota
	// StatusUnauthenticated means no credential is held.
	StatusUnauthenticated
	// StatusAuthenticated means both a credential and an identity are held.
	StatusAuthenticated
)

// String returns the lower-case status name.
func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "initializing"
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Identity is the practitioner profile returned by the verification endpoint.
type Identity struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	CrefitoID string `json:"crefito_id,omitempty"`
}

// Valid reports whether the identity carries the fields a session needs.
func (i Identity) Valid() bool {
	return strings.TrimSpace(i.ID) != "" && strings.TrimSpace(i.Username) != ""
}

// Session is an immutable view of the credential, identity and status triple.
//
// A Session value is never mutated after construction; state changes replace it.
type Session struct {
	Status     Status
	Credential string
	Identity   *Identity
}

// Initializing returns the session every process starts with.
func Initializing() Session {
	return Session{Status: StatusInitializing}
}

// Unauthenticated returns a session with no credential and no identity.
func Unauthenticated() Session {
	return Session{Status: StatusUnauthenticated}
}

// Authenticated pairs a credential with a copy of the identity.
func Authenticated(credential string, identity Identity) Session {
	id := identity
	return Session{
		Status:     StatusAuthenticated,
		Credential: credential,
		Identity:   &id,
	}
}

// IsAuthenticated reports whether both halves of the pair are present.
func (s Session) IsAuthenticated() bool {
	return s.Status == StatusAuthenticated && s.Credential != "" && s.Identity != nil
}

// Equal compares two sessions by value.
func (s Session) Equal(other Session) bool {
	if s.Status != other.Status || s.Credential != other.Credential {
		return false
	}
	if s.Identity == nil || other.Identity == nil {
		return s.Identity == nil && other.Identity == nil
	}
	return *s.Identity == *other.Identity
}

// Clone returns a copy that shares no memory with s.
func (s Session) Clone() Session {
	if s.Identity != nil {
		id := *s.Identity
		s.Identity = &id
	}
	return s
}
