package models

import "time"

// Credential is the persisted session record. Token is non-empty iff a
// session exists, and IssuedAt is set in the same write as Token.
type Credential struct {
	Token    string
	Username string
	UserID   int64
	IssuedAt time.Time
}

// HasSession reports whether c holds a token.
func (c *Credential) HasSession() bool {
	return c != nil && c.Token != ""
}

// Identity names the authenticated user. Zero fields are unknown.
type Identity struct {
	Username string
	UserID   int64
}

// DisplayName prefers the server-provided username, then fallback.
func (i Identity) DisplayName(fallback string) string {
	if i.Username != "" {
		return i.Username
	}
	return fallback
}

// AuthPayload is the success result of login and register.
type AuthPayload struct {
	Token    string
	Identity Identity
}

// ProfileInfo is the success result of token verification and profile fetch.
type ProfileInfo struct {
	ID        int64
	Username  string
	CreatedAt time.Time
}

// Identity projects the profile onto an Identity.
func (p ProfileInfo) Identity() Identity {
	return Identity{Username: p.Username, UserID: p.ID}
}
