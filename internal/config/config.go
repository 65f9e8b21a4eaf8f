package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and socket configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	LogDir     string `toml:"log_dir"`
	ExportDir  string `toml:"export_dir"`
	BackupDir  string `toml:"backup_dir"`
	SocketPath string `toml:"socket_path"`
}

// Line contains packing line behaviour applied to the active job.
type Line struct {
	ItemsPerBox     int    `toml:"items_per_box"`
	DateRequired    bool   `toml:"date_required"`
	ProductionDate  string `toml:"production_date"`
	ForceShortCode  bool   `toml:"force_short_code"`
	ResumeActiveJob bool   `toml:"resume_active_job"`
}

// Scanner contains the network scanner endpoint.
type Scanner struct {
	Enabled            bool   `toml:"enabled"`
	Address            string `toml:"address"`
	ReconnectSeconds   int    `toml:"reconnect_seconds"`
	ReadTimeoutSeconds int    `toml:"read_timeout_seconds"`
}

// Printer is a single ZPL label printer reachable over raw TCP.
type Printer struct {
	Enabled bool   `toml:"enabled"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
}

// Address returns host:port, or "" when the printer has no host.
func (p Printer) Address() string {
	if strings.TrimSpace(p.Host) == "" {
		return ""
	}
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// Printers groups the box and product label printers.
type Printers struct {
	Enabled        bool    `toml:"enabled"`
	DPI            int     `toml:"dpi"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	BoxCopies      int     `toml:"box_copies"`
	Box            Printer `toml:"box"`
	Product        Printer `toml:"product"`
	Product2       Printer `toml:"product2"`
}

// Label describes label geometry in millimetres plus print tuning.
type Label struct {
	WidthMM    float64 `toml:"width_mm"`
	HeightMM   float64 `toml:"height_mm"`
	OffsetXMM  float64 `toml:"offset_x_mm"`
	OffsetYMM  float64 `toml:"offset_y_mm"`
	Darkness   int     `toml:"darkness"`
	ModuleSize int     `toml:"module_size"`
}

// Labels contains per-printer label layouts.
type Labels struct {
	Product  Label `toml:"product"`
	Product2 Label `toml:"product2"`
	Box      Label `toml:"box"`
}

// Reject contains the serial reject actuator settings.
type Reject struct {
	Enabled         bool    `toml:"enabled"`
	Port            string  `toml:"port"`
	DurationSeconds float64 `toml:"duration_seconds"`
	DelaySeconds    float64 `toml:"delay_seconds"`
}

// Health contains device reachability polling settings.
type Health struct {
	IntervalSeconds   int  `toml:"interval_seconds"`
	DialTimeoutMillis int  `toml:"dial_timeout_ms"`
	WatchHotplug      bool `toml:"watch_hotplug"`
}

// Notifications configures push messages to an ntfy topic URL.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	StationName           string `toml:"station_name"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for a packline station.
//
// Configuration sections by subsystem:
//   - Paths: database, logs, exports, backups, and the control socket
//   - Line: box size, production date gate, short-code mode
//   - Scanner: TCP scanner endpoint and reconnect timing
//   - Printers: ZPL printers, DPI, and box label copies
//   - Labels: label geometry per printer
//   - Reject: serial DTR reject actuator
//   - Health: device polling cadence and hotplug watching
//   - Notifications: ntfy push for job completion and device faults
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Line          Line          `toml:"line"`
	Scanner       Scanner       `toml:"scanner"`
	Printers      Printers      `toml:"printers"`
	Labels        Labels        `toml:"labels"`
	Reject        Reject        `toml:"reject"`
	Health        Health        `toml:"health"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
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
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("packline.toml")
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

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.ExportDir, c.Paths.BackupDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the job store location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "packline.db")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "packlined.lock")
}

// ReconnectBackoff is the pause between scanner connection attempts.
func (s Scanner) ReconnectBackoff() time.Duration {
	return time.Duration(s.ReconnectSeconds) * time.Second
}

// ReadTimeout is the idle period after which a scanner read is retried.
func (s Scanner) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSeconds) * time.Second
}

// Timeout is the connect and write deadline for a print job.
func (p Printers) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// Duration is the DTR pulse length.
func (r Reject) Duration() time.Duration {
	return time.Duration(r.DurationSeconds * float64(time.Second))
}

// Delay is the pause between the failing scan and the pulse.
func (r Reject) Delay() time.Duration {
	return time.Duration(r.DelaySeconds * float64(time.Second))
}

// Interval is the device poll cadence.
func (h Health) Interval() time.Duration {
	return time.Duration(h.IntervalSeconds) * time.Second
}

// DialTimeout bounds each reachability probe.
func (h Health) DialTimeout() time.Duration {
	return time.Duration(h.DialTimeoutMillis) * time.Millisecond
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
