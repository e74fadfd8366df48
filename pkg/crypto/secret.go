// pkg/crypto/secret.go

package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	cerr "github.com/cockroachdb/errors"
)

// SecretString holds a credential that must never appear in logs or
// debug output. Its String and GoString forms are redacted; call
// Reveal() at the single point the clear value is actually needed
// (rendering an artifact, setting a role password).
type SecretString struct {
	value string
}

// NewSecret wraps a clear-text credential.
func NewSecret(value string) SecretString {
	return SecretString{value: value}
}

// Reveal returns the clear-text value.
func (s SecretString) Reveal() string {
	return s.value
}

// IsZero reports whether the secret is empty.
func (s SecretString) IsZero() bool {
	return s.value == ""
}

// Equal compares two secrets without exposing either.
func (s SecretString) Equal(other SecretString) bool {
	return s.value == other.value
}

func (s SecretString) String() string {
	return Redact(s.value)
}

func (s SecretString) GoString() string {
	return fmt.Sprintf("crypto.SecretString(%s)", Redact(s.value))
}

// MarshalText keeps secrets out of accidentally serialized structures.
func (s SecretString) MarshalText() ([]byte, error) {
	return []byte(Redact(s.value)), nil
}

// GenerateToken returns a high-entropy URL-safe token built from n
// random bytes. The base64 raw-URL alphabet is safe to embed unquoted
// in generated text artifacts.
func GenerateToken(n int) (SecretString, error) {
	if n < 16 {
		return SecretString{}, cerr.Newf("token length %d too short, need at least 16 bytes", n)
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return SecretString{}, cerr.Wrap(err, "read random bytes")
	}
	return NewSecret(base64.RawURLEncoding.EncodeToString(buf)), nil
}
