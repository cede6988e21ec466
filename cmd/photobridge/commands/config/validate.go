package config

import (
	"fmt"

	"github.com/marmos91/photobridge/pkg/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the photobridge configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  # Validate default config
  photobridge config validate

  # Validate specific config file
  photobridge config validate --config /etc/photobridge/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if warnings := configWarnings(cfg); len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	_, _ = fmt.Fprintf(out, "\nConfiguration summary:\n")
	_, _ = fmt.Fprintf(out, "  Album:           %s\n", orNone(cfg.Album.ID))
	_, _ = fmt.Fprintf(out, "  Fallback:        %s\n", cfg.Fallback.Type)
	_, _ = fmt.Fprintf(out, "  Journal:         %t\n", cfg.Journal.Enabled)
	_, _ = fmt.Fprintf(out, "  Cycle intervals: download=%s upload=%s\n",
		cfg.Scheduler.DownloadInterval, cfg.Scheduler.UploadInterval)
	_, _ = fmt.Fprintf(out, "  API port:        %d\n", cfg.API.Port)
	_, _ = fmt.Fprintf(out, "  Log level:       %s\n", cfg.Logging.Level)
	return nil
}

// configWarnings lists settings that load fine but will fail at runtime.
func configWarnings(cfg *config.Config) []string {
	var warnings []string
	if cfg.Line.ChannelToken == "" {
		warnings = append(warnings, "line.channel_token not set - content downloads will be rejected")
	}
	if cfg.Google.AccessToken == "" {
		warnings = append(warnings, "google.access_token not set - every upload will go to fallback")
	}
	if cfg.API.IsEnabled() && cfg.API.Token == "" {
		warnings = append(warnings, "api.token not set - the control API accepts unauthenticated requests")
	}
	return warnings
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
