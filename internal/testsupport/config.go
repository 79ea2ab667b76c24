package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Noquela/sands-of-duat/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig returns a validated config whose every directory lives under a
// per-test temp dir. Remote waits are kept short and the inter-item delay is
// disabled.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths = config.Paths{
		WorkDir:      base,
		DownloadDir:  filepath.Join(base, "downloads"),
		RawDir:       filepath.Join(base, "raw"),
		ConvertedDir: filepath.Join(base, "converted"),
		OrganizedDir: filepath.Join(base, "organized"),
		ReportsDir:   filepath.Join(base, "reports"),
		LogDir:       filepath.Join(base, "logs"),
		CatalogPath:  filepath.Join(base, "catalog.json"),
	}
	cfgVal.Remote.ItemDelaySeconds = 0
	cfgVal.Remote.ElementTimeout = 1
	cfgVal.Remote.DownloadTimeout = 3
	cfgVal.Remote.PollInterval = 1
	cfgVal.Pipeline.MinFreeDiskMiB = 0

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithPrimaryCommand sets the primary converter command line.
func WithPrimaryCommand(command string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Converter.PrimaryCommand = command
	}
}

// WithFallback toggles the in-process converter.
func WithFallback(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Converter.FallbackEnabled = enabled
	}
}

// WithCatalog writes body to the configured catalog path.
func WithCatalog(body string) ConfigOption {
	return func(b *configBuilder) {
		WriteText(b.t, b.cfg.Paths.CatalogPath, body)
	}
}

// WithStubbedBinaries writes executables that exit 0 and prepends their
// directory to PATH. Without names the default primary converter is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{b.cfg.PrimaryBinary()}
		}
		for _, name := range names {
			StubBinary(b.t, filepath.Join(b.baseDir, "bin"), name, "exit 0")
		}
	}
}

// StubBinary writes a shell script named name into dir with the given body,
// prepends dir to PATH for the rest of the test, and returns the script path.
func StubBinary(t testing.TB, dir, name, body string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}

	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", dir+string(os.PathListSeparator)+oldPath); err != nil {
		t.Fatalf("set PATH: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
	return target
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return cfg.Paths.WorkDir
}
