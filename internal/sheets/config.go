// Package sheets reads and appends bet rows on a Google Sheets tab that
// serves as both output and learning source.
package sheets

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// DefaultTab is the tab the bot writes to.
const DefaultTab = "APOSTAS_BOT"

// Config holds the configuration for the Google Sheets store.
type Config struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	TokenFile          string
	ServiceAccountPath string
	SpreadsheetID      string
	Tab                string
	ValueInputOption   string
	RetryAttempts      int
	RetryDelay         time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Tab:              DefaultTab,
		ValueInputOption: "USER_ENTERED",
		RetryAttempts:    3,
		RetryDelay:       time.Second,
	}
}

// LoadFromEnv fills empty fields from the GOOGLE_SHEETS_* environment
// variables.
func (c *Config) LoadFromEnv() {
	setIfEmpty := func(dst *string, env string) {
		if *dst == "" {
			*dst = os.Getenv(env)
		}
	}
	setIfEmpty(&c.ClientID, "GOOGLE_SHEETS_CLIENT_ID")
	setIfEmpty(&c.ClientSecret, "GOOGLE_SHEETS_CLIENT_SECRET")
	setIfEmpty(&c.RefreshToken, "GOOGLE_SHEETS_REFRESH_TOKEN")
	setIfEmpty(&c.ServiceAccountPath, "GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH")
	setIfEmpty(&c.SpreadsheetID, "GOOGLE_SHEETS_SPREADSHEET_ID")
	setIfEmpty(&c.Tab, "GOOGLE_SHEETS_TAB")
	if c.Tab == "" {
		c.Tab = DefaultTab
	}
}

// Authentication methods reported by AuthMethod.
const (
	AuthOAuth          = "oauth"
	AuthServiceAccount = "service_account"
)

// AuthMethod reports which credentials are configured: AuthOAuth,
// AuthServiceAccount, both joined with "+", or "" when neither is complete.
func (c *Config) AuthMethod() string {
	oauth := c.ClientID != "" && c.ClientSecret != "" && (c.RefreshToken != "" || c.TokenFile != "")
	sa := c.ServiceAccountPath != ""
	switch {
	case oauth && sa:
		return AuthOAuth + "+" + AuthServiceAccount
	case oauth:
		return AuthOAuth
	case sa:
		return AuthServiceAccount
	default:
		return ""
	}
}

// Validate checks that exactly one credential type is configured and that
// the sheet is addressable.
func (c *Config) Validate() error {
	switch c.AuthMethod() {
	case "":
		return errors.New("no authentication method configured")
	case AuthOAuth, AuthServiceAccount:
	default:
		return errors.New("multiple authentication methods configured; use either OAuth2 or service account")
	}

	switch {
	case c.SpreadsheetID == "":
		return errors.New("spreadsheet id is required")
	case c.Tab == "":
		return errors.New("tab name is required")
	case c.RetryAttempts < 0:
		return errors.New("retry attempts cannot be negative")
	case c.RetryDelay < 0:
		return errors.New("retry delay cannot be negative")
	}

	switch c.ValueInputOption {
	case "", "RAW", "USER_ENTERED":
		return nil
	default:
		return fmt.Errorf("invalid value input option: %s", c.ValueInputOption)
	}
}
