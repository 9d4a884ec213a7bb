// Package reconcile pairs the stakes and odds found in a message with its
// markets and sizes each bet against the bank.
package reconcile

import (
	"github.com/shopspring/decimal"
)

// Skip reasons reported on Assignment.
const (
	ReasonNoStake = "no stake and no inferable amount"
)

// Input describes one block: how many markets were found and the numbers
// extracted around them. InlineOdds is indexed like the markets and may be
// shorter than Markets.
type Input struct {
	InferredStake *float64
	Stakes        []float64
	Odds          []float64
	InlineOdds    []*float64
	Markets       int
}

// Assignment is the stake and odd chosen for one market.
type Assignment struct {
	Odd      *float64
	Reason   string
	Index    int
	StakePct float64
	Skipped  bool
}

// Reconcile assigns a stake and an odd to every market. It never fails:
// a market without a usable stake is returned with Skipped set.
//
// Stakes are positional when there are at least as many stakes as markets,
// a single stake is shared by all markets, and with no stake the inferred
// stake is used. When there are fewer stakes than markets, the markets past
// the last stake are treated as having none.
func Reconcile(in Input) []Assignment {
	if in.Markets <= 0 {
		return nil
	}

	n, m := in.Markets, len(in.Stakes)
	out := make([]Assignment, n)
	for i := range out {
		a := Assignment{Index: i, Odd: pickOdd(in, i)}

		switch {
		case m >= n:
			a.StakePct = in.Stakes[i]
		case m == 1:
			a.StakePct = in.Stakes[0]
		case i < m:
			a.StakePct = in.Stakes[i]
		case in.InferredStake != nil && *in.InferredStake > 0:
			a.StakePct = *in.InferredStake
		default:
			a.Skipped = true
			a.Reason = ReasonNoStake
		}
		out[i] = a
	}
	return out
}

// pickOdd prefers the odd printed on the market's own line, then the
// positional odd, then the first odd of the message.
func pickOdd(in Input, i int) *float64 {
	if i < len(in.InlineOdds) && in.InlineOdds[i] != nil {
		v := *in.InlineOdds[i]
		return &v
	}
	switch {
	case len(in.Odds) >= in.Markets:
		v := in.Odds[i]
		return &v
	case len(in.Odds) > 0:
		v := in.Odds[0]
		return &v
	}
	return nil
}

// InferStake converts a monetary amount into units of unitValue, rounded to
// four decimals.
func InferStake(amount, unitValue float64) (float64, bool) {
	if amount <= 0 || unitValue <= 0 {
		return 0, false
	}
	units := decimal.NewFromFloat(amount).
		Div(decimal.NewFromFloat(unitValue)).
		Round(unitDecimals)
	if !units.IsPositive() {
		return 0, false
	}
	return units.InexactFloat64(), true
}
