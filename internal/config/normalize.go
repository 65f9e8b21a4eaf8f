package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLine()
	c.normalizeScanner()
	c.normalizePrinters()
	c.normalizeLabels()
	c.normalizeReject()
	c.normalizeHealth()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ExportDir) == "" {
		c.Paths.ExportDir = filepath.Join(c.Paths.DataDir, "exports")
	}
	if c.Paths.ExportDir, err = expandPath(c.Paths.ExportDir); err != nil {
		return fmt.Errorf("paths.export_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.BackupDir) == "" {
		c.Paths.BackupDir = filepath.Join(c.Paths.DataDir, "backups")
	}
	if c.Paths.BackupDir, err = expandPath(c.Paths.BackupDir); err != nil {
		return fmt.Errorf("paths.backup_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SocketPath) == "" {
		c.Paths.SocketPath = filepath.Join(c.Paths.DataDir, "packline.sock")
	}
	if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
		return fmt.Errorf("paths.socket_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLine() {
	c.Line.ProductionDate = strings.TrimSpace(c.Line.ProductionDate)
	if c.Line.ItemsPerBox < 0 {
		c.Line.ItemsPerBox = 0
	}
}

func (c *Config) normalizeScanner() {
	c.Scanner.Address = strings.TrimSpace(c.Scanner.Address)
	if c.Scanner.ReconnectSeconds <= 0 {
		c.Scanner.ReconnectSeconds = defaultScannerReconnect
	}
	if c.Scanner.ReadTimeoutSeconds <= 0 {
		c.Scanner.ReadTimeoutSeconds = defaultScannerReadTimeout
	}
}

func (c *Config) normalizePrinters() {
	if c.Printers.DPI <= 0 {
		c.Printers.DPI = defaultPrinterDPI
	}
	if c.Printers.TimeoutSeconds <= 0 {
		c.Printers.TimeoutSeconds = defaultPrinterTimeout
	}
	if c.Printers.BoxCopies < 1 {
		c.Printers.BoxCopies = defaultBoxCopies
	}
	for _, p := range []*Printer{&c.Printers.Box, &c.Printers.Product, &c.Printers.Product2} {
		p.Host = strings.TrimSpace(p.Host)
		if p.Port == 0 {
			p.Port = defaultPrinterPort
		}
	}
}

func (c *Config) normalizeLabels() {
	for _, l := range []*Label{&c.Labels.Product, &c.Labels.Product2, &c.Labels.Box} {
		if l.ModuleSize == 0 {
			l.ModuleSize = defaultModuleSize
		}
		l.ModuleSize = max(minModuleSize, min(maxModuleSize, l.ModuleSize))
		if l.Darkness < 0 {
			l.Darkness = defaultDarkness
		}
	}
}

func (c *Config) normalizeReject() {
	c.Reject.Port = strings.TrimSpace(c.Reject.Port)
	if c.Reject.DurationSeconds == 0 {
		c.Reject.DurationSeconds = defaultRejectDuration
	}
	if c.Reject.DurationSeconds < minRejectDuration {
		c.Reject.DurationSeconds = minRejectDuration
	}
	if c.Reject.DelaySeconds < 0 {
		c.Reject.DelaySeconds = 0
	}
}

func (c *Config) normalizeHealth() {
	if c.Health.IntervalSeconds <= 0 {
		c.Health.IntervalSeconds = defaultHealthInterval
	}
	if c.Health.DialTimeoutMillis <= 0 {
		c.Health.DialTimeoutMillis = defaultHealthDialTimeout
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.Notifications.StationName = strings.TrimSpace(c.Notifications.StationName)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNotifyTimeout
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
