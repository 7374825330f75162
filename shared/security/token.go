package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
)

// tokenBytes is the amount of randomness behind every opaque token (160 bits).
const tokenBytes = 20

var tokenEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

var ErrInvalidCodeLength = errors.New("numeric code length must be positive")

// GenerateToken returns a random opaque token in lower-case unpadded base32.
// It is used for session bearer tokens, password reset tokens and record identifiers.
func GenerateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return strings.ToLower(tokenEncoding.EncodeToString(b)), nil
}

// HashToken returns the hex encoded SHA-256 of a token. The result is what gets
// stored, so a database dump never contains a usable bearer secret.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// GenerateNumericCode returns a string of length random decimal digits.
func GenerateNumericCode(length int) (string, error) {
	if length <= 0 {
		return "", ErrInvalidCodeLength
	}

	var sb strings.Builder
	sb.Grow(length)

	ten := big.NewInt(10)
	for range length {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		sb.WriteByte(byte('0' + n.Int64()))
	}

	return sb.String(), nil
}

// HashForStorage returns a keyed one-way hash (HMAC-SHA256, hex) of value.
// Short codes are hashed with a server side key so the stored hash cannot be
// reversed by enumerating the code space offline.
func HashForStorage(value, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHash reports whether value hashes to hash under key. The comparison
// runs in constant time.
func VerifyHash(value, hash, key string) bool {
	computed := HashForStorage(value, key)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}
