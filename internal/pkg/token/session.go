package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// Session is the payload carried by kiosk cookies. TokenHash binds the
// cookie to the device credential that was current when it was issued.
type Session struct {
	DeviceID  string `json:"did"`
	TokenHash string `json:"th"`
	IssuedAt  int64  `json:"iat"`
}

// Signer produces "<payload>.<mac>" cookie values so tampering is detected
// before any datastore lookup.
type Signer struct {
	key []byte
}

func NewSigner(key string) *Signer {
	return &Signer{key: []byte(key)}
}

func (s *Signer) Sign(sess Session) (string, error) {
	payload, err := EncodePayload(sess)
	if err != nil {
		return "", err
	}
	return payload + "." + s.mac(payload), nil
}

// Verify returns the decoded session, or false if the value is malformed or
// its signature does not match.
func (s *Signer) Verify(value string) (*Session, bool) {
	payload, sig, ok := strings.Cut(value, ".")
	if !ok || payload == "" || sig == "" {
		return nil, false
	}
	if !hmac.Equal([]byte(sig), []byte(s.mac(payload))) {
		return nil, false
	}

	var sess Session
	if !DecodePayload(payload, &sess) || sess.DeviceID == "" || sess.TokenHash == "" {
		return nil, false
	}
	return &sess, true
}

func (s *Signer) mac(payload string) string {
	m := hmac.New(sha256.New, s.key)
	m.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(m.Sum(nil))
}
