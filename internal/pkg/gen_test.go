package pkg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRoomCode(t *testing.T) {
	// When: generating a batch of codes
	seen := make(map[string]struct{})
	for n := 0; n < 100; n++ {
		code, err := GenerateRoomCode()
		require.NoError(t, err)

		// Then: every code is 8 chars from the uppercase+digit alphabet
		assert.Len(t, code, roomCodeLength)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(roomCodeAlphabet, r), "unexpected rune %q in %s", r, code)
		}

		seen[code] = struct{}{}
	}

	// Then: collisions in a small batch are practically impossible
	assert.Len(t, seen, 100)
}

func TestGenerateNewSessionID(t *testing.T) {
	// When: generating two session IDs
	first := GenerateNewSessionID()
	second := GenerateNewSessionID()

	// Then: they are non-empty and distinct
	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
