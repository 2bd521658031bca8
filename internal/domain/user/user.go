// Package user provides the user model and the credential flows over the
// storage port: local email/password accounts and Google Sign-In identities.
package user

import "time"

// User is an application user. Google users carry the provider subject as
// their ID; local users use their creation timestamp in milliseconds.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Picture      string    `json:"picture,omitempty"`
	IsGoogleUser bool      `json:"isGoogleUser"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Identity is a verified external identity, as extracted from a Google ID
// token. Subject is the stable provider key; there is deliberately no
// merge with local accounts sharing the same email.
type Identity struct {
	Subject string
	Name    string
	Email   string
	Picture string
}

// Public returns a copy safe for API responses and client storage, with
// the credential hash stripped.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}
