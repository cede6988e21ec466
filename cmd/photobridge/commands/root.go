// Package commands implements the photobridge CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/photobridge/cmd/photobridge/commands/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile   string
	serverURL string
	apiToken  string
	outputFmt string
	noColor   bool
)

var rootCmd = &cobra.Command{
	Use:   "photobridge",
	Short: "photobridge - move chat media into a photo library",
	Long: `photobridge downloads images and videos shared in LINE chats and
uploads them into a Google Photos album.

Run "photobridge start" to launch the pipeline. The other commands talk to a
running instance through its control API.

Use "photobridge [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/photobridge/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Control API URL (default: http://localhost:<api.port>)")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", "", "Control API bearer token (default: api.token)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format (table|json|yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(enqueueCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cycleCmd)
	rootCmd.AddCommand(config.Cmd)
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
