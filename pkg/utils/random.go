package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateRandomKey returns n random bytes encoded as unpadded URL-safe
// base64, suitable for OAuth state values and object keys.
func GenerateRandomKey(n int) (string, error) {
	b := make([]byte, n)
	// err == nil only if len(b) bytes were read.
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
