package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	envRemoteUsername = "DUATANIM_REMOTE_USERNAME"
	envRemotePassword = "DUATANIM_REMOTE_PASSWORD"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRemote()
	c.normalizeConverter()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	// Unset stage directories live under the work directory.
	fields := []struct {
		key   string
		value *string
		leaf  string
	}{
		{"paths.download_dir", &c.Paths.DownloadDir, "downloads"},
		{"paths.raw_dir", &c.Paths.RawDir, "raw"},
		{"paths.converted_dir", &c.Paths.ConvertedDir, "converted"},
		{"paths.organized_dir", &c.Paths.OrganizedDir, "organized"},
		{"paths.reports_dir", &c.Paths.ReportsDir, "reports"},
		{"paths.log_dir", &c.Paths.LogDir, "logs"},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = filepath.Join(c.Paths.WorkDir, field.leaf)
		}
		if *field.value, err = expandPath(*field.value); err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
	}
	if c.Paths.CatalogPath, err = expandPath(c.Paths.CatalogPath); err != nil {
		return fmt.Errorf("paths.catalog_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeRemote() {
	c.Remote.BaseURL = strings.TrimRight(strings.TrimSpace(c.Remote.BaseURL), "/")
	if c.Remote.BaseURL == "" {
		c.Remote.BaseURL = defaultRemoteBaseURL
	}
	if c.Remote.Username == "" {
		if value, ok := os.LookupEnv(envRemoteUsername); ok {
			c.Remote.Username = strings.TrimSpace(value)
		}
	}
	if c.Remote.Password == "" {
		if value, ok := os.LookupEnv(envRemotePassword); ok {
			c.Remote.Password = value
		}
	}
	c.Remote.BrowserBin = strings.TrimSpace(c.Remote.BrowserBin)
	c.Remote.DebuggerURL = strings.TrimSpace(c.Remote.DebuggerURL)
}

func (c *Config) normalizeConverter() {
	c.Converter.PrimaryCommand = strings.TrimSpace(c.Converter.PrimaryCommand)
	c.Converter.OutputFormat = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Converter.OutputFormat), "."))
	if c.Converter.OutputFormat == "" {
		c.Converter.OutputFormat = defaultOutputFormat
	}
	if c.Converter.Workers <= 0 {
		c.Converter.Workers = defaultConverterWorkers
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
