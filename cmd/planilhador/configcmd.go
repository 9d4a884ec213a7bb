package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/paterrx/planilhador-telegram/internal/cli"
)

// secretKeys are masked by config show. Matching is on the last path
// segment of a key.
var secretKeys = []string{"token", "refresh_token", "client_secret", "redis_password", "redis_url"}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or check the configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := yaml.Marshal(maskSecrets(viper.AllSettings()))
			if err != nil {
				return fmt.Errorf("failed to encode configuration: %w", err)
			}
			if used := viper.ConfigFileUsed(); used != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", used)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and report what is missing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, cli.FormatSuccess("Configuration is valid"))
			if err := cfg.RequireTelegram(); err != nil {
				_, _ = fmt.Fprintln(out, cli.FormatWarning("run needs telegram.token"))
			}
			if err := cfg.Sheets.Validate(); err != nil {
				_, _ = fmt.Fprintln(out, cli.FormatWarning("Google Sheets is not ready: "+err.Error()))
			} else {
				_, _ = fmt.Fprintln(out, cli.FormatSuccess("Google Sheets uses "+cfg.Sheets.AuthMethod()+" credentials"))
			}
			if len(cfg.Telegram.Chats) == 0 {
				_, _ = fmt.Fprintln(out, cli.FormatWarning("telegram.chats is empty; every chat will be processed"))
			}
			return nil
		},
	})

	return cmd
}

// maskSecrets returns a copy of settings with secret values replaced.
func maskSecrets(settings map[string]any) map[string]any {
	out := make(map[string]any, len(settings))
	for k, v := range settings {
		switch v := v.(type) {
		case map[string]any:
			out[k] = maskSecrets(v)
		default:
			if isSecretKey(k) && fmt.Sprint(v) != "" {
				out[k] = "********"
			} else {
				out[k] = v
			}
		}
	}
	return out
}

func isSecretKey(key string) bool {
	return slices.Contains(secretKeys, strings.ToLower(key))
}
