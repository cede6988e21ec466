package config

import (
	"os"

	"github.com/marmos91/photobridge/internal/cli/output"
	"github.com/marmos91/photobridge/pkg/config"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the effective photobridge configuration, with defaults and
environment overrides applied.

By default outputs YAML format. Use --output json for JSON.

Examples:
  # Show default config as YAML
  photobridge config show

  # Show as JSON
  photobridge config show -o json`,
	RunE: runConfigShow,
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	fmtFlag, _ := cmd.Flags().GetString("output")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(fmtFlag)
	if err != nil {
		return err
	}
	if format != output.FormatJSON {
		format = output.FormatYAML
	}

	redactSecrets(cfg)
	return output.NewPrinter(os.Stdout, format, false).Print(cfg, nil)
}

// redactSecrets masks tokens and keys so the output is safe to share.
func redactSecrets(cfg *config.Config) {
	for _, s := range []*string{
		&cfg.Line.ChannelToken,
		&cfg.Google.AccessToken,
		&cfg.API.Token,
		&cfg.Fallback.S3.SecretAccessKey,
	} {
		if *s != "" {
			*s = "********"
		}
	}
}
