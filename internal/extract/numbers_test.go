package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractStakes(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []float64
	}{
		{name: "percent with comma", text: "Stake 1,5%", want: []float64{1.5}},
		{name: "units", text: "Entrada 2u", want: []float64{2}},
		{name: "spelled units", text: "1 unidade", want: []float64{1}},
		{name: "ladder", text: "Over 2.5 - 1%\nUnder 3.5 - 0,5%\nBTTS 2%", want: []float64{1, 0.5, 2}},
		{name: "under keyword is not a unit", text: "Over 2.5 under", want: nil},
		{name: "empty", text: "", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractStakes(tt.text))
		})
	}
}

func TestExtractOdds(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []float64
	}{
		{name: "odd label", text: "Odd 1,85", want: []float64{1.85}},
		{name: "colon and at", text: "Odd: @2.10", want: []float64{2.10}},
		{name: "tag emoji", text: "🏷 1.90 🏷️ 2,05", want: []float64{1.90, 2.05}},
		{name: "fair odd", text: "odd justa 1.70", want: []float64{1.70}},
		{name: "none", text: "Over 2.5", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractOdds(tt.text))
		})
	}
}

func TestExtractLimit(t *testing.T) {
	tests := []struct {
		text string
		want float64
		ok   bool
	}{
		{text: "Limite da aposta: R$50,00", want: 50, ok: true},
		{text: "limite R$ 1.250,50", want: 1250.5, ok: true},
		{text: "Limite: R$ 1.000", want: 1000, ok: true},
		{text: "Limite R$ 49.90", want: 49.9, ok: true},
		{text: "Valor R$ 20", ok: false},
		{text: "Limite da aposta: R$ 0,00", ok: false},
		{text: "Limite R$ 0", ok: false},
		{text: "", ok: false},
	}
	for _, tt := range tests {
		got, ok := ExtractLimit(tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
		if tt.ok {
			assert.InDelta(t, tt.want, got, 1e-9, tt.text)
		}
	}
}

func TestExtractAmount(t *testing.T) {
	got, ok := ExtractAmount("Limite R$ 100\nApostar R$ 40,00")
	assert.True(t, ok)
	assert.InDelta(t, 40.0, got, 1e-9)

	_, ok = ExtractAmount("Limite R$ 100")
	assert.False(t, ok)
}

func TestExtractInlineOdd(t *testing.T) {
	got, ok := ExtractInlineOdd("Over 2.5 gols 1,85x")
	assert.True(t, ok)
	assert.InDelta(t, 1.85, got, 1e-9)

	_, ok = ExtractInlineOdd("Over 2.5 gols")
	assert.False(t, ok)
}

func TestParseMoney(t *testing.T) {
	tests := map[string]float64{
		"50,00":    50,
		"1.250,50": 1250.5,
		"1.000":    1000,
		"49.90":    49.9,
		"10.":      10,
	}
	for in, want := range tests {
		got, ok := ParseMoney(in)
		assert.True(t, ok, in)
		assert.InDelta(t, want, got, 1e-9, in)
	}
	_, ok := ParseMoney("abc")
	assert.False(t, ok)
}
