// Package resettoken generates the one-time password reset credential.
// The plaintext token goes to the user by mail; only its sha256 is stored,
// so lookups match by re-hashing the presented token.
package resettoken

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const tokenBytes = 20

// Window is how long a generated token stays valid.
const Window = 10 * time.Minute

// New returns the plaintext token together with the hash to store.
func New() (token, tokenHash string, err error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(buf)
	return token, Hash(token), nil
}

// Hash maps a plaintext token to its stored form.
func Hash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
