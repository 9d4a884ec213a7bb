package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSize(t *testing.T) {
	tests := []struct {
		limit  *float64
		name   string
		bank   float64
		stake  float64
		unit   float64
		amount float64
		units  float64
		scale  int
		capped bool
	}{
		{name: "plain", bank: 4000, scale: 100, stake: 1, unit: 40, amount: 40, units: 1},
		{name: "capped by limit", bank: 4000, scale: 100, stake: 2, limit: ptr(50), unit: 40, amount: 50, units: 1.25, capped: true},
		{name: "limit above amount", bank: 4000, scale: 100, stake: 1, limit: ptr(500), unit: 40, amount: 40, units: 1},
		{name: "unit rounded to cents", bank: 4000, scale: 300, stake: 1.5, unit: 13.33, amount: 20, units: 1.5},
		{name: "limit with extra precision", bank: 4000, scale: 100, stake: 2, limit: ptr(49.999), unit: 40, amount: 49.99, units: 1.2498, capped: true},
		{name: "zero scale", bank: 4000, scale: 0, stake: 1},
		{name: "zero limit", bank: 4000, scale: 100, stake: 2, limit: ptr(0), unit: 40, amount: 0, units: 0, capped: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Size(tt.bank, tt.scale, tt.stake, tt.limit)
			assert.InDelta(t, tt.unit, got.UnitValue, 1e-9)
			assert.InDelta(t, tt.amount, got.Amount, 1e-9)
			assert.InDelta(t, tt.units, got.ActualUnits, 1e-9)
			assert.Equal(t, tt.capped, got.Capped)
			assert.Equal(t, tt.scale, got.Scale)
			if tt.limit != nil {
				assert.LessOrEqual(t, got.Amount, *tt.limit)
			}
		})
	}
}

func TestPolicy(t *testing.T) {
	p := NewPolicy(0, 0, map[int64]int{-100: 200, 5: 0})

	assert.InDelta(t, DefaultBankTotal, p.BankTotal(), 1e-9)
	assert.Equal(t, 200, p.ScaleFor(-100))
	assert.Equal(t, DefaultScale, p.ScaleFor(5))
	assert.Equal(t, DefaultScale, p.ScaleFor(42))
	assert.InDelta(t, 20, p.UnitValue(-100), 1e-9)

	s := p.Size(42, 2, ptr(60))
	assert.InDelta(t, 60, s.Amount, 1e-9)
	assert.InDelta(t, 1.5, s.ActualUnits, 1e-9)
	assert.Equal(t, DefaultScale, s.Scale)
}
