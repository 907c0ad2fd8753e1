package roomid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanivhq/yaniv-server/internal/randutil"
)

func TestCodeShape(t *testing.T) {
	code := Code()
	require.Len(t, code, CodeLength)
	require.NoError(t, Validate(code))
}

func TestGeneratorDeterministic(t *testing.T) {
	g1 := NewGenerator(randutil.New(7))
	g2 := NewGenerator(randutil.New(7))
	for i := 0; i < 10; i++ {
		assert.Equal(t, g1.Code(), g2.Code())
	}
}

func TestGeneratorAlphabet(t *testing.T) {
	g := NewGenerator(randutil.New(3))
	for i := 0; i < 100; i++ {
		require.NoError(t, Validate(g.Code()))
	}
}

func TestValidate(t *testing.T) {
	assert.Error(t, Validate("SHORT"))
	assert.Error(t, Validate("TOOLONG7"))
	// Lookalike characters are excluded from the alphabet.
	assert.Error(t, Validate("ABCDE0"))
	assert.Error(t, Validate("ABCDE1"))
	assert.Error(t, Validate("abcdef"))
	assert.NoError(t, Validate("ABC234"))
}

func TestTokenUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok := Token()
		require.Len(t, tok, 32)
		assert.False(t, seen[tok])
		seen[tok] = true
	}
}
