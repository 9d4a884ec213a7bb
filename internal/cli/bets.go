package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/paterrx/planilhador-telegram/internal/model"
)

// Field is one labelled line of a box.
type Field struct {
	Label string
	Value string
}

// RenderFields lays out label/value lines, skipping empty values.
func RenderFields(fields []Field) string {
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Value == "" {
			continue
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, LabelStyle.Render(f.Label), f.Value))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// RenderBet renders one resolved bet as a box.
func RenderBet(n int, bet model.ResolvedBet) string {
	title := fmt.Sprintf("%s Bet %d", BetIcon, n)
	if bet.IsDuplicate {
		title += " " + WarningStyle.Render(DuplicateIcon+" duplicate")
	}

	odd := ""
	if bet.OddValue != nil {
		odd = formatNumber(*bet.OddValue)
	}
	market := bet.MarketSummary
	if bet.MarketRaw != "" && bet.MarketRaw != market {
		market += SubtleStyle.Render("  (" + bet.MarketRaw + ")")
	}

	return RenderBox(title, RenderFields([]Field{
		{"Match", matchLine(bet)},
		{"Market", market},
		{"Type", strings.TrimSpace(bet.BetType + " " + bet.Selection)},
		{"Odd", odd},
		{"Stake", formatNumber(bet.StakePct) + "u"},
		{"Amount", fmt.Sprintf("R$ %.2f (%su x R$ %.2f, scale %d)", bet.Amount, formatNumber(bet.ActualUnits), bet.UnitValue, bet.Scale)},
		{"Sport", bet.Fields.Sport},
		{"Competition", bet.Fields.Competition},
		{"Bookmaker", bet.Fields.Bookmaker},
		{"Key", SubtleStyle.Render(shortKey(bet.Fingerprint))},
	}))
}

func matchLine(bet model.ResolvedBet) string {
	line := bet.CanonicalHome + " x " + bet.CanonicalAway
	raw := bet.HomeRaw + " x " + bet.AwayRaw
	if raw != line {
		line += SubtleStyle.Render("  (" + raw + ")")
	}
	return line
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// RenderTable renders rows under a header row with padded columns.
func RenderTable(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	renderRow := func(cells []string, style lipgloss.Style) string {
		out := make([]string, len(widths))
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			out[i] = style.Width(widths[i] + 2).Render(cell)
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, out...)
	}

	lines := []string{renderRow(header, TableHeaderStyle)}
	for _, row := range rows {
		lines = append(lines, renderRow(row, TableCellStyle))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
