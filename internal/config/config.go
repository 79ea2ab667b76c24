package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the working directory layout.
type Paths struct {
	WorkDir      string `toml:"work_dir"`
	DownloadDir  string `toml:"download_dir"`
	RawDir       string `toml:"raw_dir"`
	ConvertedDir string `toml:"converted_dir"`
	OrganizedDir string `toml:"organized_dir"`
	ReportsDir   string `toml:"reports_dir"`
	LogDir       string `toml:"log_dir"`
	CatalogPath  string `toml:"catalog_path"`
}

// Selectors holds the CSS selectors used to drive the remote catalog UI.
type Selectors struct {
	LoginEmail      string `toml:"login_email"`
	LoginPassword   string `toml:"login_password"`
	LoginSubmit     string `toml:"login_submit"`
	LoggedIn        string `toml:"logged_in"`
	SearchInput     string `toml:"search_input"`
	SearchResult    string `toml:"search_result"`
	DownloadButton  string `toml:"download_button"`
	FormatSelect    string `toml:"format_select"`
	SkinSelect      string `toml:"skin_select"`
	FPSSelect       string `toml:"fps_select"`
	ConfirmDownload string `toml:"confirm_download"`
}

// Remote contains configuration for the remote content session.
type Remote struct {
	BaseURL          string    `toml:"base_url"`
	Username         string    `toml:"username"`
	Password         string    `toml:"password"`
	Headless         bool      `toml:"headless"`
	BrowserBin       string    `toml:"browser_bin"`
	DebuggerURL      string    `toml:"debugger_url"`
	ElementTimeout   int       `toml:"element_timeout"`
	LoginTimeout     int       `toml:"login_timeout"`
	DownloadTimeout  int       `toml:"download_timeout"`
	PollInterval     int       `toml:"poll_interval"`
	ItemDelaySeconds int       `toml:"item_delay_seconds"`
	Selectors        Selectors `toml:"selectors"`
}

// Converter contains configuration for the conversion strategies.
type Converter struct {
	// PrimaryCommand is the external converter command line. {input} and
	// {output} are substituted per item. Empty disables the primary strategy.
	PrimaryCommand  string `toml:"primary_command"`
	PrimaryTimeout  int    `toml:"primary_timeout"`
	FallbackEnabled bool   `toml:"fallback_enabled"`
	// OutputFormat is "glb" or "gltf".
	OutputFormat string `toml:"output_format"`
	Workers      int    `toml:"workers"`
}

// Pipeline contains the orchestrator gates.
type Pipeline struct {
	AcquisitionThreshold      float64 `toml:"acquisition_threshold"`
	ContinueOnCriticalFailure bool    `toml:"continue_on_critical_failure"`
	MinFreeDiskMiB            int     `toml:"min_free_disk_mib"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for duatanim.
//
// Configuration sections by subsystem:
//   - Paths: working directory layout and catalog location
//   - Remote: remote catalog session, selectors, and wait bounds
//   - Converter: primary external converter and in-process fallback
//   - Pipeline: success-rate gate and critical failure policy
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Remote    Remote    `toml:"remote"`
	Converter Converter `toml:"converter"`
	Pipeline  Pipeline  `toml:"pipeline"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/duatanim/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if os.IsNotExist(err) {
				return "", false, fmt.Errorf("config file %s not found", expanded)
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %s is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("duatanim.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates every working directory the stages write into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range c.Directories() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Directories lists the working directories in creation order.
func (c *Config) Directories() []string {
	return []string{
		c.Paths.WorkDir,
		c.Paths.DownloadDir,
		c.Paths.RawDir,
		c.Paths.ConvertedDir,
		c.Paths.OrganizedDir,
		c.Paths.ReportsDir,
		c.Paths.LogDir,
	}
}

// OutputExtension returns the converted file extension including the dot.
func (c *Config) OutputExtension() string {
	return "." + strings.ToLower(strings.TrimSpace(c.Converter.OutputFormat))
}

// ElementWait bounds how long the remote session waits for a UI control.
func (c *Config) ElementWait() time.Duration {
	return time.Duration(c.Remote.ElementTimeout) * time.Second
}

// LoginWait bounds the remote authentication flow.
func (c *Config) LoginWait() time.Duration {
	return time.Duration(c.Remote.LoginTimeout) * time.Second
}

// DownloadWait bounds the wall-clock wait for a download to land on disk.
func (c *Config) DownloadWait() time.Duration {
	return time.Duration(c.Remote.DownloadTimeout) * time.Second
}

// PollEvery is the download directory polling interval.
func (c *Config) PollEvery() time.Duration {
	return time.Duration(c.Remote.PollInterval) * time.Second
}

// ItemDelay is the pause inserted between remote items.
func (c *Config) ItemDelay() time.Duration {
	return time.Duration(c.Remote.ItemDelaySeconds) * time.Second
}

// PrimaryWait bounds a single primary converter invocation.
func (c *Config) PrimaryWait() time.Duration {
	return time.Duration(c.Converter.PrimaryTimeout) * time.Second
}

// LockPath is the single-run lock file inside the work directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.WorkDir, "duatanim.lock")
}

// HistoryPath is the SQLite run ledger location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.WorkDir, "history.db")
}

// PrimaryBinary returns the executable named by the primary converter command.
func (c *Config) PrimaryBinary() string {
	fields, err := shellquote.Split(c.Converter.PrimaryCommand)
	if err != nil || len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
