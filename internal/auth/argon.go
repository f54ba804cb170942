package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// maxSecretLength bounds hashing cost for oversized inputs.
const maxSecretLength = 1024

const saltLength = 16

// hashParams are the Argon2id cost settings recorded in every encoded hash.
type hashParams struct {
	memory      uint32 // KiB
	iterations  uint32
	parallelism uint8
	keyLength   uint32
}

var (
	// passwordParams protect low-entropy user passwords.
	passwordParams = hashParams{memory: 64 * 1024, iterations: 3, parallelism: 4, keyLength: 32}
	// secretParams protect random one-time OAuth secrets, which resist
	// guessing on their own.
	secretParams = hashParams{memory: 16 * 1024, iterations: 1, parallelism: 2, keyLength: 32}
)

// HashPassword returns the encoded Argon2id hash of password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	return encodeHash(password, passwordParams)
}

// VerifyPassword reports whether password matches encodedHash. A malformed
// hash is a mismatch, not an error.
func VerifyPassword(encodedHash, password string) (bool, error) {
	return matches(encodedHash, password), nil
}

// HashSecret hashes a one-time secret for storage so a stolen database
// yields nothing exchangeable.
func HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", errors.New("secret cannot be empty")
	}
	return encodeHash(secret, secretParams)
}

// VerifySecret checks a one-time secret against its stored hash.
func VerifySecret(encodedHash, secret string) bool {
	return matches(encodedHash, secret)
}

// encodeHash produces the PHC string form:
// $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
func encodeHash(value string, p hashParams) (string, error) {
	if len(value) > maxSecretLength {
		return "", errors.New("value exceeds maximum length")
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(value), salt, p.iterations, p.memory, p.parallelism, p.keyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memory, p.iterations, p.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func matches(encodedHash, value string) bool {
	if len(value) > maxSecretLength {
		return false
	}
	p, salt, key, err := decodeHash(encodedHash)
	if err != nil {
		return false
	}
	candidate := argon2.IDKey([]byte(value), salt, p.iterations, p.memory, p.parallelism, p.keyLength)
	return subtle.ConstantTimeCompare(key, candidate) == 1
}

func decodeHash(encoded string) (p hashParams, salt, key []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, errors.New("invalid hash format")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, fmt.Errorf("unsupported version %q", parts[2])
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.iterations, &p.parallelism); err != nil {
		return p, nil, nil, fmt.Errorf("invalid parameters: %w", err)
	}
	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return p, nil, nil, fmt.Errorf("invalid salt encoding: %w", err)
	}
	if key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return p, nil, nil, fmt.Errorf("invalid hash encoding: %w", err)
	}
	if len(key) == 0 {
		return p, nil, nil, errors.New("empty hash")
	}

	//nolint:gosec // key length comes from our own 32-byte hashes
	p.keyLength = uint32(len(key))
	return p, salt, key, nil
}
