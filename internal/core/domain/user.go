package domain

// UserID is the stable identity supplied by the authentication layer for every
// connection. The coordinator trusts it as-is and never re-verifies it.
type UserID string

// UndefinedUserID is the sentinel some clients send before their auth state has
// resolved. Connections presenting it are rejected.
const UndefinedUserID UserID = "undefined"

// Known returns false for the empty and sentinel identities that must never
// enter the presence registry.
func (id UserID) Known() bool {
	return id != "" && id != UndefinedUserID
}
