package util

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Cost 12 keeps a single hash around 250ms, slow enough to blunt
// credential-stuffing against student accounts without making login
// feel sluggish.
const passwordHashCost = 12

// bcrypt only reads the first 72 bytes of input. Reject longer
// passwords instead of silently truncating them.
const maxPasswordBytes = 72

var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// HashPassword hashes a plain text password with bcrypt.
func HashPassword(password string) (string, error) {
	if len(password) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// VerifyPassword reports whether the plain text password matches the
// stored bcrypt hash.
func VerifyPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}
