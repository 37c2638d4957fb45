package account

import "time"

// Account is a stored user record. Name and Email hold ciphertext produced by
// the secrets cipher, never plaintext.
type Account struct {
	UserID       string    `json:"userId"`
	PasswordHash string    `json:"passwordHash"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Lookup is the secondary index entry mapping plaintext (name, email) back to
// an account identifier for the find-ID recovery flow. It is written once at
// registration and never updated.
type Lookup struct {
	Name   string
	Email  string
	UserID string
}
