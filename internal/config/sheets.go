package config

import (
	"github.com/spf13/viper"

	"github.com/paterrx/planilhador-telegram/internal/sheets"
)

// LoadSheetsConfig reads the sheets.* keys. Precedence is the viper value
// (config file or PLANILHADOR_SHEETS_* env), then the GOOGLE_SHEETS_* env
// variables, then the defaults. The result is not validated; the store
// validates it when it connects.
func LoadSheetsConfig(v *viper.Viper) sheets.Config {
	cfg := sheets.DefaultConfig()
	cfg.Tab = ""

	cfg.ServiceAccountPath = ExpandPath(v.GetString("sheets.service_account_path"))
	cfg.ClientID = v.GetString("sheets.client_id")
	cfg.ClientSecret = v.GetString("sheets.client_secret")
	cfg.RefreshToken = v.GetString("sheets.refresh_token")
	cfg.TokenFile = ExpandPath(v.GetString("sheets.token_file"))
	cfg.SpreadsheetID = v.GetString("sheets.spreadsheet_id")
	cfg.Tab = v.GetString("sheets.tab")
	if v.IsSet("sheets.retry_attempts") {
		cfg.RetryAttempts = v.GetInt("sheets.retry_attempts")
	}
	if v.IsSet("sheets.retry_delay") {
		cfg.RetryDelay = v.GetDuration("sheets.retry_delay")
	}

	cfg.LoadFromEnv()
	cfg.ServiceAccountPath = ExpandPath(cfg.ServiceAccountPath)
	return cfg
}
