package utils

import (
	"github.com/google/uuid"
)

// GenerateID generates a new UUID string. Collision-free under concurrent
// calls; used for job ids.
func GenerateID() string {
	return uuid.New().String()
}

// GenerateShortID generates a shorter UUID (first 8 characters) for request
// and error correlation ids
func GenerateShortID() string {
	return uuid.New().String()[:8]
}

// ValidateID validates if a string is a valid UUID
func ValidateID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
