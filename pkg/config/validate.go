package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags and the cross-field rules tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return err
	}

	var errs []error
	switch cfg.Fallback.Type {
	case "fs":
		if cfg.Fallback.FS.Dir == "" {
			errs = append(errs, errors.New("fallback.fs.dir is required when fallback.type is fs"))
		}
	case "s3":
		if cfg.Fallback.S3.Bucket == "" {
			errs = append(errs, errors.New("fallback.s3.bucket is required when fallback.type is s3"))
		}
	}
	if cfg.Journal.Enabled && cfg.Journal.Path == "" {
		errs = append(errs, errors.New("journal.path is required when the journal is enabled"))
	}
	if cfg.Spool.Enabled && cfg.Spool.Dir == "" {
		errs = append(errs, errors.New("spool.dir is required when the spool is enabled"))
	}
	if cfg.Metrics.Enabled && cfg.API.IsEnabled() && cfg.Metrics.Port == cfg.API.Port {
		errs = append(errs, fmt.Errorf("metrics.port and api.port must differ (both %d)", cfg.API.Port))
	}
	return errors.Join(errs...)
}
