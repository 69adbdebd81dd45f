package security

import (
	"github.com/google/uuid"
)

// GenerateSessionID creates a new random UUID identifying a quiz session
func GenerateSessionID() string {
	return uuid.New().String()
}

// ValidSessionID reports whether id looks like an id from GenerateSessionID
func ValidSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
