package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// Alphanumeric is the 62 symbol alphabet used for opaque user-facing codes.
const Alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// HashPassword returns a bcrypt hash of the supplied password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares the hashed password with the plaintext candidate.
func VerifyPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

// Digest returns the hex SHA-256 of a high-entropy secret such as a refresh or
// activation token. It is unsuitable for passwords.
func Digest(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// GenerateToken returns a random URL-safe token of the requested byte length.
func GenerateToken(length int) (string, error) {
	buffer := make([]byte, length)
	if _, err := rand.Read(buffer); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}

// GenerateAlphanumeric returns a string of the requested length drawn uniformly from Alphanumeric.
func GenerateAlphanumeric(length int) (string, error) {
	return GenerateFromAlphabet(rand.Reader, Alphanumeric, length)
}

// GenerateFromAlphabet draws length symbols uniformly from alphabet using the supplied entropy source.
func GenerateFromAlphabet(src io.Reader, alphabet string, length int) (string, error) {
	if length <= 0 {
		return "", errors.New("crypto: length must be positive")
	}
	if len(alphabet) < 2 {
		return "", errors.New("crypto: alphabet must contain at least two symbols")
	}
	if src == nil {
		src = rand.Reader
	}

	limit := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(src, limit)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}
