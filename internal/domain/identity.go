package domain

import "strconv"

// AnonymousUserID is the user id carried by sessions that connect without a valid token.
const AnonymousUserID = "anonymous"

// Identity is the caller identity a session is constructed with.
// It is resolved once by the transport middleware and never looked up again.
type Identity struct {
	UserID    string
	Anonymous bool
}

// NewUserIdentity builds the identity of an authenticated user.
func NewUserIdentity(userID uint) Identity {
	return Identity{UserID: strconv.FormatUint(uint64(userID), 10)}
}

// AnonymousIdentity returns the identity used when no user is authenticated.
func AnonymousIdentity() Identity {
	return Identity{UserID: AnonymousUserID, Anonymous: true}
}

// String returns the form used for color hashing and logging.
func (i Identity) String() string {
	if i.UserID == "" {
		return AnonymousUserID
	}
	return i.UserID
}

// WireID returns the user_id sent to clients: the numeric id for an
// authenticated user, the "anonymous" string otherwise.
func (i Identity) WireID() interface{} {
	if i.Anonymous {
		return AnonymousUserID
	}
	if id, err := strconv.ParseUint(i.UserID, 10, 64); err == nil {
		return id
	}
	return i.String()
}
