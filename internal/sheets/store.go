package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/paterrx/planilhador-telegram/internal/common"
	"github.com/paterrx/planilhador-telegram/internal/model"
)

// Store is the ground truth table on Google Sheets.
type Store struct {
	service *sheets.Service
	logger  *slog.Logger
	header  []string
	config  Config
	mu      sync.Mutex
}

// NewStore connects to the spreadsheet and makes sure the tab and its
// header row exist.
func NewStore(ctx context.Context, config Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if config.ValueInputOption == "" {
		config.ValueInputOption = "USER_ENTERED"
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	service, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	s := &Store{
		config:  config,
		service: service,
		logger:  logger,
	}
	if err := s.EnsureTab(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		refresh := config.RefreshToken
		if refresh == "" && config.TokenFile != "" {
			saved, err := LoadToken(config.TokenFile)
			if err != nil {
				return nil, fmt.Errorf("unable to load token file: %w", err)
			}
			refresh = saved.RefreshToken
		}

		client := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsScope},
		}
		tokenSource = client.TokenSource(ctx, &oauth2.Token{
			RefreshToken: refresh,
			TokenType:    "Bearer",
		})
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

func (s *Store) retryOptions(op string) common.RetryOptions {
	return common.RetryOptions{
		Operation:    "sheets " + op,
		Logger:       s.logger,
		MaxAttempts:  s.config.RetryAttempts,
		InitialDelay: s.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// tabRange quotes the tab name for A1 notation.
func tabRange(tab, cells string) string {
	quoted := "'" + strings.ReplaceAll(tab, "'", "''") + "'"
	if cells == "" {
		return quoted
	}
	return quoted + "!" + cells
}

// classify marks client errors as permanent so they are not retried.
func classify(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", common.ErrRateLimit, err)
	case apiErr.Code >= 400 && apiErr.Code < 500:
		return common.Permanent(err)
	}
	return err
}

// EnsureTab creates the tab when it is missing and writes the header on an
// empty tab. An existing header is kept as the operator left it.
func (s *Store) EnsureTab(ctx context.Context) error {
	var spreadsheet *sheets.Spreadsheet
	err := common.WithRetry(ctx, func() error {
		var getErr error
		spreadsheet, getErr = s.service.Spreadsheets.Get(s.config.SpreadsheetID).
			Fields("sheets.properties.title").Context(ctx).Do()
		return classify(getErr)
	}, s.retryOptions("get spreadsheet"))
	if err != nil {
		return fmt.Errorf("unable to access spreadsheet %s: %w", s.config.SpreadsheetID, err)
	}

	found := false
	for _, sh := range spreadsheet.Sheets {
		if sh.Properties != nil && sh.Properties.Title == s.config.Tab {
			found = true
			break
		}
	}
	if !found {
		req := &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{
						Title: s.config.Tab,
						GridProperties: &sheets.GridProperties{
							RowCount:    2000,
							ColumnCount: int64(len(model.Header)),
						},
					},
				},
			}},
		}
		if _, err := s.service.Spreadsheets.BatchUpdate(s.config.SpreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("unable to create tab %q: %w", s.config.Tab, err)
		}
		s.logger.Info("Created tab", "tab", s.config.Tab)
	}

	header, err := s.readHeader(ctx)
	if err != nil {
		return err
	}
	if len(header) == 0 {
		header = append([]string(nil), model.Header...)
		if err := s.writeHeader(ctx, header); err != nil {
			return err
		}
		s.logger.Info("Header written", "tab", s.config.Tab, "columns", len(header))
	} else if missing := missingColumns(header); len(missing) > 0 {
		s.logger.Warn("Sheet header is missing columns; they will not be written",
			"tab", s.config.Tab,
			"missing", missing)
	}

	s.mu.Lock()
	s.header = header
	s.mu.Unlock()
	return nil
}

func (s *Store) readHeader(ctx context.Context) ([]string, error) {
	var resp *sheets.ValueRange
	err := common.WithRetry(ctx, func() error {
		var getErr error
		resp, getErr = s.service.Spreadsheets.Values.Get(s.config.SpreadsheetID, tabRange(s.config.Tab, "1:1")).
			Context(ctx).Do()
		return classify(getErr)
	}, s.retryOptions("read header"))
	if err != nil {
		return nil, fmt.Errorf("unable to read header: %w", err)
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}
	return toStrings(resp.Values[0]), nil
}

func (s *Store) writeHeader(ctx context.Context, header []string) error {
	row := make([]any, len(header))
	for i, h := range header {
		row[i] = h
	}
	vr := &sheets.ValueRange{Values: [][]any{row}}
	return common.WithRetry(ctx, func() error {
		_, err := s.service.Spreadsheets.Values.Update(s.config.SpreadsheetID, tabRange(s.config.Tab, "A1"), vr).
			ValueInputOption("RAW").Context(ctx).Do()
		return classify(err)
	}, s.retryOptions("write header"))
}

// Header returns the column names of the tab as last read.
func (s *Store) Header() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.header...)
}

// ReadAll returns every row of the tab, header first.
func (s *Store) ReadAll(ctx context.Context) ([][]string, error) {
	var resp *sheets.ValueRange
	err := common.WithRetry(ctx, func() error {
		var getErr error
		resp, getErr = s.service.Spreadsheets.Values.Get(s.config.SpreadsheetID, tabRange(s.config.Tab, "")).
			Context(ctx).Do()
		return classify(getErr)
	}, s.retryOptions("read rows"))
	if err != nil {
		return nil, fmt.Errorf("unable to read tab %q: %w", s.config.Tab, err)
	}

	rows := make([][]string, len(resp.Values))
	for i, r := range resp.Values {
		rows[i] = toStrings(r)
	}
	if len(rows) > 0 {
		s.mu.Lock()
		s.header = rows[0]
		s.mu.Unlock()
	}
	return rows, nil
}

// Append adds one record at the bottom of the tab, laid out by column name.
func (s *Store) Append(ctx context.Context, rec model.Record) error {
	row := rec.Row(s.Header())
	vr := &sheets.ValueRange{Values: [][]any{row}}

	err := common.WithRetry(ctx, func() error {
		_, appendErr := s.service.Spreadsheets.Values.Append(s.config.SpreadsheetID, tabRange(s.config.Tab, "A1"), vr).
			ValueInputOption(s.config.ValueInputOption).
			InsertDataOption("INSERT_ROWS").
			Context(ctx).Do()
		return classify(appendErr)
	}, s.retryOptions("append row"))
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrSinkWrite, err)
	}

	s.logger.Debug("Row appended", "tab", s.config.Tab, "bet_key", rec.Bet.Fingerprint)
	return nil
}

func toStrings(values []any) []string {
	out := make([]string, len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func missingColumns(header []string) []string {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[strings.TrimSpace(h)] = true
	}
	var missing []string
	for _, col := range model.Header {
		if !have[col] {
			missing = append(missing, col)
		}
	}
	return missing
}
