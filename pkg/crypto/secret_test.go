// pkg/crypto/secret_test.go

package crypto

import (
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken(32)
	require.NoError(t, err)
	assert.False(t, tok.IsZero())

	// 32 random bytes encode to 43 raw-URL base64 characters.
	clear := tok.Reveal()
	assert.Len(t, clear, 43)
	assert.Regexp(t, regexp.MustCompile(`^[A-Za-z0-9_-]+$`), clear)

	other, err := GenerateToken(32)
	require.NoError(t, err)
	assert.False(t, tok.Equal(other), "two generated tokens must differ")
}

func TestGenerateTokenRejectsShortLength(t *testing.T) {
	t.Parallel()

	_, err := GenerateToken(8)
	assert.Error(t, err)
}

func TestSecretStringNeverPrintsValue(t *testing.T) {
	t.Parallel()

	s := NewSecret("hunter2hunter2")

	assert.NotContains(t, s.String(), "hunter2")
	assert.NotContains(t, fmt.Sprintf("%v", s), "hunter2")
	assert.NotContains(t, fmt.Sprintf("%+v", s), "hunter2")
	assert.NotContains(t, fmt.Sprintf("%#v", s), "hunter2")

	text, err := s.MarshalText()
	require.NoError(t, err)
	assert.NotContains(t, string(text), "hunter2")

	assert.Equal(t, "hunter2hunter2", s.Reveal())
}

func TestRedact(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "(empty)", Redact(""))
	assert.Equal(t, "****", Redact("abcd"))
}
