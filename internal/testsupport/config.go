package testsupport

import (
	"path/filepath"
	"testing"

	"packline/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Devices are disabled so nothing dials out unless a test opts in.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.ExportDir = filepath.Join(base, "exports")
	cfgVal.Paths.BackupDir = filepath.Join(base, "backups")
	cfgVal.Paths.SocketPath = filepath.Join(base, "data", "packline.sock")
	cfgVal.Scanner.Enabled = false
	cfgVal.Printers.Enabled = false
	cfgVal.Reject.Enabled = false
	cfgVal.Health.WatchHotplug = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithItemsPerBox sets the line box size.
func WithItemsPerBox(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Line.ItemsPerBox = n
	}
}

// WithScanner enables the scanner listener against addr.
func WithScanner(addr string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scanner.Enabled = true
		b.cfg.Scanner.Address = addr
		b.cfg.Scanner.ReconnectSeconds = 1
	}
}

// WithBoxPrinter enables printing and points the box printer at addr.
func WithBoxPrinter(host string, port int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Printers.Enabled = true
		b.cfg.Printers.Box = config.Printer{Enabled: true, Host: host, Port: port}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
