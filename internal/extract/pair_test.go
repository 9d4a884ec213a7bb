package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPair_General(t *testing.T) {
	e := New(DefaultConfig())

	tests := []struct {
		name  string
		lines []string
		home  string
		away  string
		ok    bool
	}{
		{
			name:  "x separator",
			lines: []string{"Flamengo x Palmeiras", "Over 2.5 gols"},
			home:  "Flamengo",
			away:  "Palmeiras",
			ok:    true,
		},
		{
			name:  "vs with leading time",
			lines: []string{"16:00 Real Madrid vs Barcelona"},
			home:  "Real Madrid",
			away:  "Barcelona",
			ok:    true,
		},
		{
			name:  "dash with marker and junk prefix",
			lines: []string{"📅 OOS Santos - Bahia"},
			home:  "Santos",
			away:  "Bahia",
			ok:    true,
		},
		{
			name:  "skips market lines",
			lines: []string{"Over 2.5 - 1.85x", "Grêmio × Inter"},
			home:  "Grêmio",
			away:  "Inter",
			ok:    true,
		},
		{
			name:  "hyphenated name survives spaced separator",
			lines: []string{"Saint-Etienne x Lyon"},
			home:  "Saint-Etienne",
			away:  "Lyon",
			ok:    true,
		},
		{
			name:  "letters inside words are not separators",
			lines: []string{"Alexandre Pato"},
			ok:    false,
		},
		{
			name:  "no pair",
			lines: []string{"Stake 1%", "Odd 1.90"},
			ok:    false,
		},
		{
			name:  "empty",
			lines: nil,
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home, away, ok := e.ExtractPair(tt.lines)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.home, home)
			assert.Equal(t, tt.away, away)
		})
	}
}

func TestExtractPair_Tennis(t *testing.T) {
	e := New(DefaultConfig())

	t.Run("two name lines", func(t *testing.T) {
		lines := []string{"ATP Miami", "Carlos Alcaraz", "Jannik Sinner", "Mais de 22.5 games"}
		p, ok := e.FindPair(lines)
		require.True(t, ok)
		assert.Equal(t, "Carlos Alcaraz", p.Home)
		assert.Equal(t, "Jannik Sinner", p.Away)
		assert.Equal(t, 2, p.Line)
	})

	t.Run("single line with names", func(t *testing.T) {
		lines := []string{"WTA Roma", "Iga Swiatek vs Aryna Sabalenka"}
		p, ok := e.FindPair(lines)
		require.True(t, ok)
		assert.Equal(t, "Iga Swiatek", p.Home)
		assert.Equal(t, "Aryna Sabalenka", p.Away)
		assert.Equal(t, 1, p.Line)
	})
}

func TestLooksLikeName(t *testing.T) {
	assert.True(t, looksLikeName("Carlos Alcaraz"))
	assert.True(t, looksLikeName("N. Djokovic"))
	assert.False(t, looksLikeName("Alcaraz"))
	assert.False(t, looksLikeName("carlos alcaraz"))
	assert.False(t, looksLikeName("Game 3 Set 2"))
}

func TestExtractMarkets(t *testing.T) {
	lines := []string{
		"Flamengo x Palmeiras",
		"Flamengo - Mais de 1.5 gols 1,85x",
		"Escalação confirmada",
		"Flamengo ou Empate",
		"LeBron James - 25.5 pts",
		"Defesas do goleiro mais de 3.5",
		"Ambas marcam sim 2.10x",
	}

	got := ExtractMarkets(lines, 1)
	require.Len(t, got, 5)

	assert.Equal(t, "Flamengo - Mais de 1.5 gols 1,85x", got[0].Raw)
	require.NotNil(t, got[0].InlineOdd)
	assert.InDelta(t, 1.85, *got[0].InlineOdd, 1e-9)
	assert.Equal(t, "over_under_after_dash", got[0].Rule)

	assert.Equal(t, "Flamengo ou Empate", got[1].Raw)
	assert.Nil(t, got[1].InlineOdd)
	assert.Equal(t, "disjunction", got[1].Rule)

	assert.Equal(t, "trailing_number", got[2].Rule)
	assert.Equal(t, "over_under", got[3].Rule)

	assert.Equal(t, "both_teams_score", got[4].Rule)
	require.NotNil(t, got[4].InlineOdd)
	assert.InDelta(t, 2.10, *got[4].InlineOdd, 1e-9)
}

func TestExtractMarkets_StartIndexBounds(t *testing.T) {
	lines := []string{"Over 2.5"}
	assert.Len(t, ExtractMarkets(lines, -3), 1)
	assert.Empty(t, ExtractMarkets(lines, 5))
	assert.Empty(t, ExtractMarkets(nil, 0))
}
