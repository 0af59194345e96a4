package auth

import "golang.org/x/crypto/bcrypt"

// MinPasswordLength is the shortest password accepted for new accounts.
const MinPasswordLength = 8

// HashPassword hashes a plain text password using bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword checks a plain text password against its bcrypt hash.
func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
