package reconcile

import (
	"github.com/shopspring/decimal"
)

const (
	moneyDecimals = 2
	unitDecimals  = 4
)

// Defaults used when the bank is not configured.
const (
	DefaultBankTotal = 4000.0
	DefaultScale     = 100
)

// Sizing is the monetary outcome of a stake.
type Sizing struct {
	UnitValue         float64
	RecommendedAmount float64
	Amount            float64
	ActualUnits       float64
	Scale             int
	Capped            bool
}

// Size computes unit value and amount for stakePct units on a bank split
// into scale units. When limit is set the amount never exceeds it.
func Size(bankTotal float64, scale int, stakePct float64, limit *float64) Sizing {
	s := Sizing{Scale: scale}
	if scale <= 0 || bankTotal <= 0 {
		return s
	}

	unit := decimal.NewFromFloat(bankTotal).
		Div(decimal.NewFromInt(int64(scale))).
		Round(moneyDecimals)
	stake := decimal.NewFromFloat(stakePct)
	recommended := unit.Mul(stake).Round(moneyDecimals)

	s.UnitValue = unit.InexactFloat64()
	s.RecommendedAmount = recommended.InexactFloat64()
	s.Amount = s.RecommendedAmount
	s.ActualUnits = stake.Round(unitDecimals).InexactFloat64()

	if limit == nil || *limit < 0 {
		return s
	}
	capAmount := decimal.NewFromFloat(*limit).RoundFloor(moneyDecimals)
	if recommended.LessThanOrEqual(capAmount) {
		return s
	}

	s.Capped = true
	s.Amount = capAmount.InexactFloat64()
	if unit.IsPositive() {
		s.ActualUnits = capAmount.Div(unit).Round(unitDecimals).InexactFloat64()
	}
	return s
}

// Policy holds the bank configuration and the per-chat unit scales.
type Policy struct {
	scales       map[int64]int
	bankTotal    float64
	defaultScale int
}

// NewPolicy builds a Policy. Non-positive values fall back to the defaults
// and non-positive chat scales are ignored.
func NewPolicy(bankTotal float64, defaultScale int, scales map[int64]int) Policy {
	if bankTotal <= 0 {
		bankTotal = DefaultBankTotal
	}
	if defaultScale <= 0 {
		defaultScale = DefaultScale
	}
	p := Policy{
		bankTotal:    bankTotal,
		defaultScale: defaultScale,
		scales:       make(map[int64]int, len(scales)),
	}
	for chat, scale := range scales {
		if scale > 0 {
			p.scales[chat] = scale
		}
	}
	return p
}

// BankTotal returns the configured bank.
func (p Policy) BankTotal() float64 { return p.bankTotal }

// ScaleFor returns the unit scale of a chat.
func (p Policy) ScaleFor(chatID int64) int {
	if s, ok := p.scales[chatID]; ok {
		return s
	}
	return p.defaultScale
}

// UnitValue is the monetary value of one unit in chatID.
func (p Policy) UnitValue(chatID int64) float64 {
	return Size(p.bankTotal, p.ScaleFor(chatID), 0, nil).UnitValue
}

// Size sizes a stake for chatID.
func (p Policy) Size(chatID int64, stakePct float64, limit *float64) Sizing {
	return Size(p.bankTotal, p.ScaleFor(chatID), stakePct, limit)
}
