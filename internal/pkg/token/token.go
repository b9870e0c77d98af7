// Package token produces and verifies the opaque credentials handed to
// kiosks and children: random secrets, human-relayable pairing codes,
// one-way digests and compact cookie payloads.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
)

// MinSecretBytes is the smallest secret accepted for bearer-style credentials (128 bits).
const MinSecretBytes = 16

const shortCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

var ErrSecretTooShort = errors.New("token: secret must be at least 16 bytes")

// GenerateSecret returns byteLength random bytes from crypto/rand encoded as
// unpadded base64url.
func GenerateSecret(byteLength int) (string, error) {
	if byteLength < MinSecretBytes {
		return "", ErrSecretTooShort
	}
	b := make([]byte, byteLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateShortCode returns an upper-case code without look-alike
// characters (0/O, 1/I) so it can be read aloud or typed on a tablet.
func GenerateShortCode(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("token: code length must be positive")
	}
	max := big.NewInt(int64(len(shortCodeChars)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = shortCodeChars[n.Int64()]
	}
	return string(b), nil
}

// Hash is SHA-256 over the UTF-8 bytes of secret, base64url without padding.
func Hash(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Equal compares two digests in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// EncodePayload serializes v as base64url JSON.
func EncodePayload(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodePayload reverses EncodePayload. It reports false on any malformed
// input and never panics.
func DecodePayload(s string, v interface{}) bool {
	if s == "" {
		return false
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}
