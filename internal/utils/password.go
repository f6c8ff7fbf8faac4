package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword returns the bcrypt digest of plain using the given cost.
// Each call salts independently, so hashing the same password twice yields
// different digests.
func HashPassword(plain string, cost int) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plain), cost)
}

// VerifyPassword safely compares a bcrypt digest and a plain password.
// Any failure, including a corrupt or truncated digest, is reported as a
// mismatch rather than an error.
func VerifyPassword(hash []byte, plain string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(plain)) == nil
}
