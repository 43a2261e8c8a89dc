package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTemporaryPassword(t *testing.T) {
	p, err := GenerateTemporaryPassword(12)
	require.NoError(t, err)
	assert.Len(t, p, 12)
	for _, r := range p {
		assert.True(t, strings.ContainsRune(passwordAlphabet, r))
	}

	short, err := GenerateTemporaryPassword(3)
	require.NoError(t, err)
	assert.Len(t, short, 8)

	other, _ := GenerateTemporaryPassword(12)
	assert.NotEqual(t, p, other)
}

func TestGenerateSecureRandomString(t *testing.T) {
	s, err := GenerateSecureRandomString(16)
	require.NoError(t, err)
	assert.Len(t, s, 22)
}
