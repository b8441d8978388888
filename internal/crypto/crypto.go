// Package crypto provides content fingerprints for conversion inputs
// and the secrets used for sessions and CSRF tokens.
package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// FingerprintSize is the digest size in bytes; hex output is twice as long.
const FingerprintSize = 32

// Fingerprint returns a hex BLAKE2b-256 digest of the input text.
// Line endings are normalized first so the same export pasted from
// Windows and unix hosts fingerprints identically.
func Fingerprint(text string) string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	sum := blake2b.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Matches reports whether text has the given fingerprint.
func Matches(text, fingerprint string) bool {
	return Fingerprint(text) == strings.ToLower(fingerprint)
}

// SecretSize is the byte length of generated session and CSRF secrets.
const SecretSize = 32

// GenerateSecret returns SecretSize random bytes.
func GenerateSecret() ([]byte, error) {
	secret := make([]byte, SecretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate secret: %w", err)
	}
	return secret, nil
}

// DecodeSecret accepts a hex-encoded secret and falls back to the raw bytes
// for values that are not valid hex.
func DecodeSecret(value string) []byte {
	if decoded, err := hex.DecodeString(value); err == nil && len(decoded) > 0 {
		return decoded
	}
	return []byte(value)
}
