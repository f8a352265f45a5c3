package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/supplydesk-backend/pkg/config"
)

var cheapParams = config.PasswordConfig{
	ArgonMemoryKB:    1024,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("paper-clips-42", cheapParams)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$"))

	ok, err := VerifyPassword("paper-clips-42", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("paper-clips-43", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPasswordSurvivesConfigChange(t *testing.T) {
	hash, err := HashPassword("stapler", cheapParams)
	require.NoError(t, err)

	stronger := cheapParams
	stronger.ArgonTime = 3
	_, err = HashPassword("other", stronger)
	require.NoError(t, err)

	ok, err := VerifyPassword("stapler", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHashPasswordClampsParams(t *testing.T) {
	hash, err := HashPassword("x", config.PasswordConfig{})
	require.NoError(t, err)
	assert.Contains(t, hash, "m=8,t=1,p=1$")
}

func TestVerifyPasswordRejectsMalformedHashes(t *testing.T) {
	for _, encoded := range []string{
		"not-a-hash",
		"$argon2i$v=19$m=8,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5",
		"$argon2id$v=18$m=8,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5",
		"$argon2id$v=19$m=8,t=1,p=1$!!$a2V5a2V5",
		"$argon2id$v=19$m=8,t=1,p=1$c2FsdHNhbHQ",
	} {
		_, err := VerifyPassword("irrelevant", encoded)
		assert.ErrorIs(t, err, ErrInvalidHash, encoded)
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := HashPassword("", cheapParams)
	require.Error(t, err)
}

func TestGenerateTempPassword(t *testing.T) {
	pw, err := GenerateTempPassword(12)
	require.NoError(t, err)
	assert.Len(t, pw, 12)
	for _, r := range pw {
		assert.True(t, strings.ContainsRune(tempPasswordSet, r), "unexpected rune %q", r)
	}

	other, err := GenerateTempPassword(12)
	require.NoError(t, err)
	assert.NotEqual(t, pw, other)

	_, err = GenerateTempPassword(0)
	require.Error(t, err)
}
