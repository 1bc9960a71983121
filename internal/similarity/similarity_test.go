package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenSet(t *testing.T) {
	t.Run("normalizes before scoring", func(t *testing.T) {
		assert.GreaterOrEqual(t, TokenSet("FRAILE Y NUÑEZ S.L.", "FRAILE Y NÚÑEZ"), 0.85)
	})

	t.Run("accent and case insensitive", func(t *testing.T) {
		assert.Equal(t, 1.0, TokenSet("JOSÉ MARÍA", "jose maria"))
		assert.InDelta(t, TokenSet("NUNEZ", "NUNEZ"), TokenSet("NÚÑEZ", "NUNEZ"), 1e-9)
	})

	t.Run("order insensitive", func(t *testing.T) {
		assert.Equal(t, 1.0, TokenSet("barroso maria", "maria barroso"))
	})

	t.Run("subset scores one", func(t *testing.T) {
		assert.Equal(t, 1.0, TokenSet("materiales soria", "materiales de construccion soria"))
	})

	t.Run("empty side scores zero", func(t *testing.T) {
		assert.Zero(t, TokenSet("", "anything"))
		assert.Zero(t, TokenSet("anything", "   "))
		assert.Zero(t, TokenSet("", ""))
	})

	t.Run("unrelated names score low", func(t *testing.T) {
		assert.Less(t, TokenSet("ferreteria lopez", "cristaleria martin"), 0.6)
	})

	t.Run("partial overlap is between bounds", func(t *testing.T) {
		s := TokenSet("materiales soria gamma", "materiales soria grupo")
		assert.Greater(t, s, 0.6)
		assert.Less(t, s, 1.0)
	})

	t.Run("symmetric", func(t *testing.T) {
		a, b := "comercio ruiz hermanos", "ruiz comercial"
		assert.InDelta(t, TokenSet(a, b), TokenSet(b, a), 1e-9)
	})
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 1.0, Ratio("blanco", "blanco"))
	assert.Zero(t, Ratio("", "blanco"))
	// lcs("abcd","acbd") = 3
	assert.InDelta(t, 0.75, Ratio("abcd", "acbd"), 1e-9)
	assert.Zero(t, Ratio("abc", "xyz"))
}

func TestNormalizedRatio(t *testing.T) {
	assert.Equal(t, 1.0, NormalizedRatio("Gris Perla", "gris perla"))
}

func TestPrefix(t *testing.T) {
	assert.Equal(t, 1.0, Prefix("Famicast", "FAMICAST"))
	assert.Greater(t, Prefix("famicas", "famicast"), 0.85)
	assert.Zero(t, Prefix("", "famicast"))
	assert.Greater(t, Prefix("famicas", "famicast"), Prefix("famicas", "tsacimaf"))
}
