// Package uuid generates time-ordered UUIDv7 identifiers for primary keys.
package uuid

import (
	googleuuid "github.com/google/uuid"
)

// New generates a new UUIDv7 string. UUIDv7 is time-ordered, which keeps
// index locality for rows inserted close together in time.
func New() string {
	id, err := googleuuid.NewV7()
	if err != nil {
		// crypto/rand failure; fall back to a random UUIDv4
		return googleuuid.NewString()
	}
	return id.String()
}

// Parse validates and canonicalizes a UUID string.
func Parse(s string) (string, error) {
	parsed, err := googleuuid.Parse(s)
	if err != nil {
		return "", err
	}
	return parsed.String(), nil
}

// IsValid checks if a string is a valid UUID.
func IsValid(s string) bool {
	_, err := googleuuid.Parse(s)
	return err == nil
}
