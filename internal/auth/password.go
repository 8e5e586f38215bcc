package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordLength is the shortest password accepted for new accounts.
	MinPasswordLength = 8
	// bcrypt ignores everything past 72 bytes.
	maxPasswordBytes = 72
)

var (
	ErrInvalidPassword  = errors.New("invalid password")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong  = errors.New("password exceeds maximum length of 72 bytes")
)

// HashPassword creates a bcrypt hash of the password.
func HashPassword(password string, cost int) (string, error) {
	switch {
	case len(password) < MinPasswordLength:
		return "", ErrPasswordTooShort
	case len(password) > maxPasswordBytes:
		return "", ErrPasswordTooLong
	}

	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a password with its hash.
func CheckPassword(password, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrInvalidPassword
	}
	return err
}

// GenerateAPIToken returns a random plaintext token and the hash to persist.
func GenerateAPIToken() (plaintext string, hash string, err error) {
	plaintext, err = randomHex(32)
	if err != nil {
		return "", "", err
	}
	return plaintext, HashToken(plaintext), nil
}

// HashToken creates a SHA-256 hash of an API token for storage.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// GenerateSessionSecret creates a random 32-byte key for CSRF signing.
func GenerateSessionSecret() (string, error) {
	return randomHex(32)
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
