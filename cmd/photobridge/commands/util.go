package commands

import (
	"fmt"
	"os"

	"github.com/marmos91/photobridge/internal/cli/output"
	"github.com/marmos91/photobridge/internal/logger"
	"github.com/marmos91/photobridge/pkg/api"
	"github.com/marmos91/photobridge/pkg/apiclient"
	"github.com/marmos91/photobridge/pkg/config"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}

// newAPIClient builds a control API client from --server and --token,
// falling back to the local configuration for whichever is unset.
func newAPIClient() (*apiclient.Client, error) {
	url, token := serverURL, apiToken
	if url == "" || token == "" {
		port := api.DefaultPort
		if cfg, err := config.Load(cfgFile); err == nil {
			if cfg.API.Port != 0 {
				port = cfg.API.Port
			}
			if token == "" {
				token = cfg.API.Token
			}
		} else if cfgFile != "" {
			return nil, err
		}
		if url == "" {
			url = fmt.Sprintf("http://localhost:%d", port)
		}
	}
	return apiclient.New(url).WithToken(token), nil
}

// newPrinter returns a stdout printer for the --output flag.
func newPrinter() (*output.Printer, error) {
	format, err := output.ParseFormat(outputFmt)
	if err != nil {
		return nil, err
	}
	return output.NewPrinter(os.Stdout, format, !noColor), nil
}
