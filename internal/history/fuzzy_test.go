package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenSortRatio(t *testing.T) {
	assert.InDelta(t, 100, TokenSortRatio("Real Madrid", "Madrid Real"), 1e-9)
	assert.InDelta(t, 100, TokenSortRatio("São Paulo", "sao-paulo"), 1e-9)
	assert.InDelta(t, 0, TokenSortRatio("abc", "xyz"), 1e-9)
	assert.InDelta(t, 100, TokenSortRatio("", ""), 1e-9)
	assert.InDelta(t, 75, TokenSortRatio("abcd", "abce"), 1e-9)
}

func TestBestMatch(t *testing.T) {
	candidates := []string{"Palmeiras", "Flamengo", "Fluminense"}

	m, ok := BestMatch("flamengo", candidates)
	require.True(t, ok)
	assert.Equal(t, "Flamengo", m.Candidate)
	assert.InDelta(t, 100, m.Score, 1e-9)

	m, ok = BestMatch("Flamengu", candidates)
	require.True(t, ok)
	assert.Equal(t, "Flamengo", m.Candidate)
	assert.Less(t, m.Score, 100.0)

	_, ok = BestMatch("", candidates)
	assert.False(t, ok)
	_, ok = BestMatch("x", nil)
	assert.False(t, ok)
}

func TestBestMatch_TiesGoToFirst(t *testing.T) {
	m, ok := BestMatch("ab", []string{"ax", "xb"})
	require.True(t, ok)
	assert.Equal(t, "ax", m.Candidate)
}

func TestCanonicalizer(t *testing.T) {
	c := NewCanonicalizer(map[string]string{
		"PSG":       "Paris Saint-Germain",
		"  man utd": "Manchester United",
		"":          "ignored",
	})

	tests := map[string]string{
		"psg":            "Paris Saint-Germain",
		"Man  UTD":       "Manchester United",
		"  são   paulo ": "Sao Paulo",
		"FC porto":       "FC Porto",
		"GRÊMIO":         "Gremio",
		"":               "",
	}
	for raw, want := range tests {
		assert.Equal(t, want, c.Canonical(raw), raw)
	}
}
