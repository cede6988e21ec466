package config

import (
	"fmt"
	"os"

	"github.com/marmos91/photobridge/pkg/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a configuration file populated with default values.

Tokens are left empty; set them in the file or through
PHOTOBRIDGE_LINE_CHANNEL_TOKEN and PHOTOBRIDGE_GOOGLE_ACCESS_TOKEN.

Examples:
  # Write to the default location
  photobridge config init

  # Write to a custom path, replacing an existing file
  photobridge config init --config ./config.yaml --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}

	if err := config.SaveConfig(config.GetDefaultConfig(), path); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Set album.id and the access tokens before running 'photobridge start'.")
	return nil
}
