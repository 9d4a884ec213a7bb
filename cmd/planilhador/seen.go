package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/paterrx/planilhador-telegram/internal/cli"
	"github.com/paterrx/planilhador-telegram/internal/config"
	"github.com/paterrx/planilhador-telegram/internal/storage"
)

var errNotSQLite = errors.New("this command needs dedup.backend: sqlite")

func seenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seen",
		Short: "Inspect the set of already recorded bets",
		Long: `Inspect the seen set used to flag duplicate bets.

Every recorded bet leaves its fingerprint in the seen set. A bet whose
fingerprint is already there is still written to the sheet, but flagged as a
duplicate.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "count",
		Short: "Print how many fingerprints are stored",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openSeenStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			n, err := store.Count(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d\n", n)
			return err
		},
	})
	cmd.AddCommand(seenCheckCmd())
	cmd.AddCommand(seenRecentCmd())
	cmd.AddCommand(seenForgetCmd())

	return cmd
}

func seenCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <fingerprint>...",
		Short: "Tell whether fingerprints are already recorded",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSQLiteSeen(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			return reportSeen(cmd.Context(), cmd.OutOrStdout(), store, args)
		},
	}
}

// seenLookup is the part of the SQLite store seen check reads.
type seenLookup interface {
	Has(ctx context.Context, id string) (bool, error)
}

func reportSeen(ctx context.Context, out io.Writer, store seenLookup, ids []string) error {
	for _, id := range ids {
		has, err := store.Has(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to check %s: %w", id, err)
		}
		line := cli.FormatWarning("Not seen " + id)
		if has {
			line = cli.FormatSuccess("Seen " + id)
		}
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}

func seenRecentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List the most recently recorded fingerprints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			ctx := cmd.Context()

			store, err := openSQLiteSeen(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			entries, err := store.Recent(ctx, limit)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(entries))
			for i, e := range entries {
				rows = append(rows, []string{strconv.Itoa(i + 1), e.Fingerprint, e.FirstSeen.Local().Format(time.DateTime)})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.RenderTable([]string{"#", "Fingerprint", "First seen"}, rows))
			return err
		},
	}
	cmd.Flags().Int("limit", 20, "number of fingerprints to show")
	return cmd
}

func seenForgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget <fingerprint>...",
		Short: "Remove fingerprints so the bets are recorded again",
		Long: `Remove fingerprints from the SQLite seen set.

Only the store is changed. A bot that is already running loaded the seen set
at startup and keeps flagging these bets as duplicates until it restarts.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openSQLiteSeen(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			out := cmd.OutOrStdout()
			for _, id := range args {
				if err := store.Remove(ctx, id); err != nil {
					return fmt.Errorf("failed to forget %s: %w", id, err)
				}
				if _, err := fmt.Fprintln(out, cli.FormatSuccess("Forgot "+id)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func openSQLiteSeen(cmd *cobra.Command) (*storage.SQLiteStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Dedup.Backend != config.BackendSQLite {
		return nil, errNotSQLite
	}
	return storage.NewSQLiteStore(cmd.Context(), cfg.Dedup.SQLitePath)
}
