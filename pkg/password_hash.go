package pkg

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHashCost is the bcrypt cost of newly stored account passwords.
const PasswordHashCost = 12

// MaxPasswordBytes is the longest password bcrypt can hash, longer input is
// rejected instead of silently truncated.
const MaxPasswordBytes = 72

var ErrPasswordTooLong = errors.New("password too long")

func HashPassword(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", fmt.Errorf("%w: %d bytes, max %d", ErrPasswordTooLong, len(password), MaxPasswordBytes)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordHashCost)
	return BytesToString(hash), err
}

// CheckPasswordHash accepts hashes of any cost, older accounts keep working
// when the cost changes.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
