// Package keys implements API key issuance, validation and quota accounting.
//
// All calendar computations (daily and monthly rollover boundaries) use UTC.
package keys

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

const (
	// keyIDPrefix namespaces public key identifiers.
	keyIDPrefix = "ck_"
	// secretPrefix namespaces secret key values.
	secretPrefix = "sk_"

	keyIDBytes  = 12
	secretBytes = 32
)

// Material is the output of key generation: the public identifier, the
// plaintext secret (shown to the caller exactly once) and the digest that
// gets persisted instead of the secret.
type Material struct {
	KeyID   string
	Secret  string
	KeyHash string
}

// GenerateKeyMaterial produces fresh key material from a cryptographically
// secure random source.
func GenerateKeyMaterial() (Material, error) {
	id := make([]byte, keyIDBytes)
	if _, err := io.ReadFull(rand.Reader, id); err != nil {
		return Material{}, fmt.Errorf("keys: generate key id: %w", err)
	}
	secret := make([]byte, secretBytes)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return Material{}, fmt.Errorf("keys: generate secret: %w", err)
	}

	plaintext := secretPrefix + hex.EncodeToString(secret)
	return Material{
		KeyID:   keyIDPrefix + hex.EncodeToString(id),
		Secret:  plaintext,
		KeyHash: HashSecret(plaintext),
	}, nil
}

// HashSecret returns the hex-encoded SHA-256 digest of a secret key value.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
