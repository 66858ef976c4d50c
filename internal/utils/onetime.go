package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// OneTimeTokenBytes is the amount of randomness in a one-time token (256 bits).
const OneTimeTokenBytes = 32

// NewOneTimeToken returns a URL-safe random token used as a single-use capability.
func NewOneTimeToken() (string, error) {
	b := make([]byte, OneTimeTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
