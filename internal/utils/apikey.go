package utils

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashAPIKey hashes an admin API key using bcrypt
func HashAPIKey(key string, cost int) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash api key: %w", err)
	}
	return string(bytes), nil
}

// CheckAPIKey compares a presented key with the stored hash
func CheckAPIKey(key, hash string) bool {
	if key == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key))
	return err == nil
}
