package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	n, err := New(DefaultConfig())
	require.NoError(t, err)
	return n
}

func TestNew_InvalidPattern(t *testing.T) {
	_, err := New(Config{NoisePatterns: []string{`[unclosed`}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to compile noise pattern")
}

func TestFilterNoise(t *testing.T) {
	n := newTestNormalizer(t)

	tests := []struct {
		name  string
		lines []string
		want  []string
	}{
		{
			name:  "drops blank lines",
			lines: []string{"", "   ", "Flamengo x Palmeiras"},
			want:  []string{"Flamengo x Palmeiras"},
		},
		{
			name:  "drops noise prefixes case-insensitively",
			lines: []string{"APOSTA SIMPLES", "valor da aposta R$ 10", "Over 2.5 gols", "Q 12:30 live"},
			want:  []string{"Over 2.5 gols"},
		},
		{
			name:  "noise only matches at line start",
			lines: []string{"Jogo - Aposta simples"},
			want:  []string{"Jogo - Aposta simples"},
		},
		{
			name:  "trims surrounding whitespace",
			lines: []string{"  Stake 1%  "},
			want:  []string{"Stake 1%"},
		},
		{
			name:  "emoji noise prefix",
			lines: []string{"📌 fixado", "🆚 confronto", "Santos - Bahia"},
			want:  []string{"Santos - Bahia"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.FilterNoise(tt.lines))
		})
	}
}

func TestFilterNoise_Idempotent(t *testing.T) {
	n := newTestNormalizer(t)
	inputs := [][]string{
		{"", "Aposta simples", "  Flamengo x Vasco ", "Over 1,5", "fe) lixo", "Stake 2%"},
		{"📌", "🏠 casa", "OOS 10:00 Time A - Time B"},
		{},
	}

	for _, lines := range inputs {
		once := n.FilterNoise(lines)
		assert.Equal(t, once, n.FilterNoise(once))
	}
}

func TestCleanCaption(t *testing.T) {
	n := newTestNormalizer(t)

	raw := "Aposta simples\n• Flamengo   x  Palmeiras\n\n-- Over 2.5 gols\r\nStake 1%"
	got := n.CleanCaption(raw)

	assert.Equal(t, "Flamengo x Palmeiras\nOver 2.5 gols\nStake 1%", got)
}

func TestCleanCaption_KeepsMarker(t *testing.T) {
	n := newTestNormalizer(t)

	got := n.CleanCaption("📅 Jogo A\n📅 Jogo B")
	assert.True(t, strings.HasPrefix(got, DefaultMarker))
	assert.Equal(t, 2, strings.Count(got, DefaultMarker))
}

func TestCleanCaption_Empty(t *testing.T) {
	n := newTestNormalizer(t)
	assert.Equal(t, "", n.CleanCaption(""))
	assert.Equal(t, "", n.CleanCaption("Aposta simples\nValor da aposta"))
}

func TestSegment(t *testing.T) {
	n := newTestNormalizer(t)

	t.Run("splits on marker keeping it", func(t *testing.T) {
		blocks := n.Segment("📅 Jogo A stake 1% 📅 Jogo B stake 2%")
		require.Len(t, blocks, 2)
		for i, b := range blocks {
			assert.True(t, strings.HasPrefix(b.Text, DefaultMarker), "block %d: %q", i, b.Text)
			assert.Equal(t, i, b.Index)
		}
		assert.Equal(t, "📅 Jogo A stake 1%", blocks[0].Text)
		assert.Equal(t, "📅 Jogo B stake 2%", blocks[1].Text)
	})

	t.Run("no marker yields one block", func(t *testing.T) {
		blocks := n.Segment("Flamengo x Vasco\nOver 2.5")
		require.Len(t, blocks, 1)
		assert.Equal(t, "Flamengo x Vasco\nOver 2.5", blocks[0].Text)
	})

	t.Run("empty input yields no blocks", func(t *testing.T) {
		assert.Empty(t, n.Segment(""))
		assert.Empty(t, n.Segment("   "))
	})

	t.Run("text before first marker is its own block", func(t *testing.T) {
		blocks := n.Segment("Tips do dia\n📅 Jogo A\n📅 Jogo B")
		require.Len(t, blocks, 3)
		assert.Equal(t, "Tips do dia", blocks[0].Text)
	})

	t.Run("segmenting a block returns it unchanged", func(t *testing.T) {
		for _, b := range n.Segment("intro 📅 Jogo A stake 1%\n📅 Jogo B stake 2%") {
			again := n.Segment(b.Text)
			require.Len(t, again, 1)
			assert.Equal(t, b.Text, again[0].Text)
		}
	})

	t.Run("marker alone is kept as one block", func(t *testing.T) {
		blocks := n.Segment(DefaultMarker)
		require.Len(t, blocks, 1)
	})
}

func TestNormalize(t *testing.T) {
	n := newTestNormalizer(t)
	assert.Equal(t, "a\nb", n.Normalize("  a\r\nb \n"))
	assert.Equal(t, "S\u00e3o", n.Normalize("Sa\u0303o"))
}

func TestFold(t *testing.T) {
	tests := map[string]string{
		"São Paulo":        "sao paulo",
		"  Atlético   MG ": "atletico mg",
		"GRÊMIO":           "gremio",
		"":                 "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Fold(in), "input %q", in)
	}
}
