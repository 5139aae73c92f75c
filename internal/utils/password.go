package utils

import (
    "errors"
    "unicode/utf8"

    "golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is enforced at registration.
const MinPasswordLength = 8

// ErrWeakPassword is returned by CheckPasswordPolicy.
var ErrWeakPassword = errors.New("password must be at least 8 characters")

// CheckPasswordPolicy rejects passwords that are too short.  bcrypt ignores
// bytes past 72 so longer inputs are accepted but not strengthened.
func CheckPasswordPolicy(plain string) error {
    if utf8.RuneCountInString(plain) < MinPasswordLength {
        return ErrWeakPassword
    }
    return nil
}

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
    b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
    if err != nil {
        return "", err
    }
    return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
    return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
