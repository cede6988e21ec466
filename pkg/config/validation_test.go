package config

import (
	"strings"
	"testing"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{}
	cfg.Fallback.FS.Dir = t.TempDir()
	cfg.Journal.Path = t.TempDir()
	ApplyDefaults(cfg)
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	if err := Validate(validConfig(t)); err != nil {
		t.Fatalf("Expected valid config, got error: %v", err)
	}
}

func TestValidate_InvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"log level", func(c *Config) { c.Logging.Level = "VERBOSE" }},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"api port", func(c *Config) { c.API.Port = 70000 }},
		{"batch size above service cap", func(c *Config) { c.Pipeline.MaxBatchSize = 51 }},
		{"zero downloads", func(c *Config) { c.Pipeline.MaxDownloads = -1 }},
		{"negative retry", func(c *Config) { n := -1; c.Pipeline.MaxRetry = &n }},
		{"inverted delay window", func(c *Config) {
			c.Pipeline.UploadDelayMin = 5e9
			c.Pipeline.UploadDelayMax = 1e9
		}},
		{"unknown kind", func(c *Config) { c.Pipeline.AcceptedKinds = []string{"sticker"} }},
		{"unknown kind album", func(c *Config) { c.Album.KindAlbums = map[string]string{"sticker": "a"} }},
		{"empty kind album", func(c *Config) { c.Album.KindAlbums = map[string]string{"video": ""} }},
		{"fallback type", func(c *Config) { c.Fallback.Type = "ftp" }},
		{"line base url", func(c *Config) { c.Line.BaseURL = "not a url" }},
		{"google rate", func(c *Config) { c.Google.RequestsPerSecond = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("Expected validation error, got nil")
			}
		})
	}
}

func TestValidate_CrossFieldRules(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"s3 without bucket", func(c *Config) { c.Fallback.Type = "s3" }, "fallback.s3.bucket"},
		{"fs without dir", func(c *Config) { c.Fallback.FS.Dir = "" }, "fallback.fs.dir"},
		{"journal without path", func(c *Config) {
			c.Journal.Enabled = true
			c.Journal.Path = ""
		}, "journal.path"},
		{"spool without dir", func(c *Config) { c.Spool.Enabled = true }, "spool.dir"},
		{"metrics on api port", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Port = c.API.Port
		}, "metrics.port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Expected error mentioning %q, got %v", tt.wantMsg, err)
			}
		})
	}
}

func TestValidate_MemoryFallbackNeedsNothing(t *testing.T) {
	cfg := validConfig(t)
	cfg.Fallback.Type = "memory"
	cfg.Fallback.FS.Dir = ""
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected memory fallback to validate, got %v", err)
	}
}
