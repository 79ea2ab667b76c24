package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRemote(); err != nil {
		return err
	}
	if err := c.validateConverter(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		return errors.New("paths.work_dir must be set")
	}
	if strings.TrimSpace(c.Paths.CatalogPath) == "" {
		return errors.New("paths.catalog_path must be set")
	}
	if c.Paths.DownloadDir == c.Paths.RawDir {
		return errors.New("paths.download_dir and paths.raw_dir must differ")
	}
	if c.Paths.ConvertedDir == c.Paths.OrganizedDir {
		return errors.New("paths.converted_dir and paths.organized_dir must differ")
	}
	return nil
}

func (c *Config) validateRemote() error {
	if err := ensurePositiveMap(map[string]int{
		"remote.element_timeout":  c.Remote.ElementTimeout,
		"remote.login_timeout":    c.Remote.LoginTimeout,
		"remote.download_timeout": c.Remote.DownloadTimeout,
		"remote.poll_interval":    c.Remote.PollInterval,
	}); err != nil {
		return err
	}
	if c.Remote.ItemDelaySeconds < 0 {
		return errors.New("remote.item_delay_seconds must be >= 0")
	}
	if c.Remote.PollInterval >= c.Remote.DownloadTimeout {
		return errors.New("remote.poll_interval must be less than remote.download_timeout")
	}
	return nil
}

func (c *Config) validateConverter() error {
	if c.Converter.PrimaryCommand == "" && !c.Converter.FallbackEnabled {
		return errors.New("converter.primary_command must be set when converter.fallback_enabled is false")
	}
	if c.Converter.PrimaryCommand != "" {
		if c.Converter.PrimaryTimeout <= 0 {
			return errors.New("converter.primary_timeout must be positive (seconds)")
		}
		if !strings.Contains(c.Converter.PrimaryCommand, "{input}") || !strings.Contains(c.Converter.PrimaryCommand, "{output}") {
			return errors.New("converter.primary_command must reference {input} and {output}")
		}
	}
	switch c.Converter.OutputFormat {
	case "glb", "gltf":
	default:
		return fmt.Errorf("converter.output_format: unsupported value %q (want glb or gltf)", c.Converter.OutputFormat)
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.AcquisitionThreshold < 0 || c.Pipeline.AcquisitionThreshold > 1 {
		return errors.New("pipeline.acquisition_threshold must be between 0 and 1")
	}
	if c.Pipeline.MinFreeDiskMiB < 0 {
		return errors.New("pipeline.min_free_disk_mib must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
