package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/paterrx/planilhador-telegram/internal/cli"
	"github.com/paterrx/planilhador-telegram/internal/history"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect what has been learned from the sheet",
	}

	cmd.AddCommand(historyStatsCmd())
	cmd.AddCommand(historyLookupCmd())

	return cmd
}

func historyStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show how many teams, markets and opponents the sheet teaches",
		RunE: func(cmd *cobra.Command, _ []string) error {
			state, err := loadHistory(cmd)
			if err != nil {
				return err
			}
			st := state.Stats()
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox(cli.ChartIcon+" History", cli.RenderFields([]cli.Field{
				{Label: "Rows", Value: strconv.Itoa(st.Rows)},
				{Label: "Teams", Value: strconv.Itoa(st.Teams)},
				{Label: "Markets", Value: strconv.Itoa(st.Markets)},
				{Label: "Opponents", Value: strconv.Itoa(st.Opponents)},
				{Label: "Loaded", Value: st.LoadedAt.Format(time.RFC3339)},
			})))
			return err
		},
	}
}

func historyLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "lookup <name or market>...",
		Short:   "Show how names and markets would be resolved",
		Example: `  planilhador history lookup Fla "Over 2.5 gols"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := loadHistory(cmd)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(args))
			for _, raw := range args {
				learned, _ := state.SuggestCanonical(raw)
				opponent, _ := state.SuggestOpponent(raw)
				summary, _ := state.SuggestSummary(raw)
				rows = append(rows, []string{raw, learned, state.Canonicalize(raw), opponent, summary})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.RenderTable(
				[]string{"Input", "Learned", "Canonical", "Opponent", "Summary"}, rows))
			return err
		},
	}
}

// loadHistory reads the configured sheet into a fresh history state.
func loadHistory(cmd *cobra.Command) (*history.State, error) {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	book, err := openLedger(ctx, cfg, false)
	if err != nil {
		return nil, err
	}
	state, err := history.New(ctx, book, history.Options{
		Logger:         slog.Default(),
		Aliases:        cfg.History.Aliases,
		FuzzyThreshold: cfg.History.FuzzyThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return state, nil
}
