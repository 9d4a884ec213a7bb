package model

import (
	"strconv"
	"time"
)

// Column names of the ground truth sheet. They are addressed by name, so the
// physical order in an operator's sheet may differ from Header.
const (
	ColBetKey        = "bet_key"
	ColDuplicate     = "duplicate"
	ColTimestamp     = "data_hora"
	ColChatID        = "group_id"
	ColChatName      = "group_name"
	ColRawMessage    = "raw_mensagem_identificada"
	ColRawHome       = "raw_time_casa"
	ColRawAway       = "raw_time_fora"
	ColHome          = "time_casa"
	ColAway          = "time_fora"
	ColRawMarket     = "mercado_raw"
	ColMarketSummary = "market_summary"
	ColOdd           = "odd"
	ColStakePct      = "stake_pct"
	ColActualUnits   = "actual_units"
	ColScale         = "scale"
	ColUnitValue     = "unit_value"
	ColAmount        = "amount_real"
	ColPlaced        = "placed"
	ColSelection     = "selection"
	ColBetType       = "bet_type"
	ColCompetition   = "competition"
	ColBookmaker     = "bookmaker"
	ColSport         = "sport"
)

// Header is the column order used when the bot creates the sheet itself.
var Header = []string{
	ColBetKey, ColDuplicate, ColTimestamp, ColChatID, ColChatName,
	ColRawMessage,
	ColRawHome, ColRawAway,
	ColHome, ColAway,
	ColRawMarket, ColMarketSummary, ColOdd, ColStakePct,
	ColActualUnits, ColScale, ColUnitValue, ColAmount, ColPlaced,
	ColSelection, ColBetType, ColCompetition, ColBookmaker, ColSport,
}

// Record is one row appended to the ground truth store.
type Record struct {
	Timestamp  time.Time
	ChatName   string
	RawMessage string
	Bet        ResolvedBet
	ChatID     int64
}

// NewRecord builds the sink row for a resolved bet.
func NewRecord(in RawInput, chatName, rawMessage string, bet ResolvedBet) Record {
	return Record{
		Timestamp:  in.Timestamp,
		ChatID:     in.ChatID,
		ChatName:   chatName,
		RawMessage: rawMessage,
		Bet:        bet,
	}
}

// Values returns the record keyed by column name.
func (r Record) Values() map[string]string {
	b := r.Bet
	odd := ""
	if b.OddValue != nil {
		odd = formatFloat(*b.OddValue)
	}
	return map[string]string{
		ColBetKey:        b.Fingerprint,
		ColDuplicate:     strconv.FormatBool(b.IsDuplicate),
		ColTimestamp:     r.Timestamp.Format(time.RFC3339),
		ColChatID:        strconv.FormatInt(r.ChatID, 10),
		ColChatName:      r.ChatName,
		ColRawMessage:    r.RawMessage,
		ColRawHome:       b.HomeRaw,
		ColRawAway:       b.AwayRaw,
		ColHome:          b.CanonicalHome,
		ColAway:          b.CanonicalAway,
		ColRawMarket:     b.MarketRaw,
		ColMarketSummary: b.MarketSummary,
		ColOdd:           odd,
		ColStakePct:      formatFloat(b.StakePct),
		ColActualUnits:   formatFloat(b.ActualUnits),
		ColScale:         strconv.Itoa(b.Scale),
		ColUnitValue:     formatFloat(b.UnitValue),
		ColAmount:        formatFloat(b.Amount),
		ColPlaced:        "",
		ColSelection:     b.Selection,
		ColBetType:       b.BetType,
		ColCompetition:   b.Fields.Competition,
		ColBookmaker:     b.Fields.Bookmaker,
		ColSport:         b.Fields.Sport,
	}
}

// Row lays the record out in the given header order. Unknown columns are
// left blank.
func (r Record) Row(header []string) []any {
	values := r.Values()
	row := make([]any, len(header))
	for i, col := range header {
		row[i] = values[col]
	}
	return row
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
