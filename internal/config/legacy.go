package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tailscale/hujson"
)

// legacyKeyAliases maps keys written by older releases onto their current
// names. An alias only applies when the current key is absent.
var legacyKeyAliases = map[string]string{
	"prod_width_mm":      "prod_w",
	"prod_height_mm":     "prod_h",
	"prod_x_mm":          "prod_x",
	"prod_y_mm":          "prod_y",
	"box_width_mm":       "box_w",
	"box_height_mm":      "box_h",
	"box_x_mm":           "box_x",
	"box_y_mm":           "box_y",
	"box_printer_ip":     "box_ip",
	"box_printer_port":   "box_port",
	"prod_printer_ip":    "prod_ip",
	"prod_printer_port":  "prod_port",
	"reject_com":         "reject_port",
	"reject_duration_s":  "reject_duration",
	"reject_delay_s":     "reject_delay",
	"prod2_printer_ip":   "prod2_ip",
	"prod2_printer_port": "prod2_port",
}

// LegacySettings is the flat key/value settings document used by the
// previous station software.
type LegacySettings map[string]any

// ReadLegacySettings parses a legacy settings file. Comments and trailing
// commas are tolerated.
func ReadLegacySettings(path string) (LegacySettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read legacy settings: %w", err)
	}
	standard, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("parse legacy settings: %w", err)
	}
	var settings LegacySettings
	if err := json.Unmarshal(standard, &settings); err != nil {
		return nil, fmt.Errorf("decode legacy settings: %w", err)
	}
	if settings == nil {
		settings = LegacySettings{}
	}
	settings.applyAliases()
	return settings, nil
}

func (s LegacySettings) applyAliases() {
	for src, dst := range legacyKeyAliases {
		if v, ok := s[src]; ok {
			if _, exists := s[dst]; !exists {
				s[dst] = v
			}
		}
	}
}

// ImportLegacy builds a Config from defaults overlaid with a legacy settings
// file. The result is normalized and validated.
func ImportLegacy(path string) (*Config, error) {
	settings, err := ReadLegacySettings(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	settings.Apply(&cfg)
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("imported settings invalid: %w", err)
	}
	return &cfg, nil
}

// Apply overlays every recognized legacy key onto cfg.
func (s LegacySettings) Apply(cfg *Config) {
	s.setFloat("prod_w", &cfg.Labels.Product.WidthMM)
	s.setFloat("prod_h", &cfg.Labels.Product.HeightMM)
	s.setFloat("prod_x", &cfg.Labels.Product.OffsetXMM)
	s.setFloat("prod_y", &cfg.Labels.Product.OffsetYMM)
	s.setInt("prod_darkness", &cfg.Labels.Product.Darkness)
	s.setInt("prod_module", &cfg.Labels.Product.ModuleSize)

	// The second product printer inherits the first layout unless overridden.
	cfg.Labels.Product2 = cfg.Labels.Product
	s.setFloat("prod2_w", &cfg.Labels.Product2.WidthMM)
	s.setFloat("prod2_h", &cfg.Labels.Product2.HeightMM)
	s.setFloat("prod2_x", &cfg.Labels.Product2.OffsetXMM)
	s.setFloat("prod2_y", &cfg.Labels.Product2.OffsetYMM)
	s.setInt("prod2_darkness", &cfg.Labels.Product2.Darkness)
	s.setInt("prod2_module", &cfg.Labels.Product2.ModuleSize)

	s.setFloat("box_w", &cfg.Labels.Box.WidthMM)
	s.setFloat("box_h", &cfg.Labels.Box.HeightMM)
	s.setFloat("box_x", &cfg.Labels.Box.OffsetXMM)
	s.setFloat("box_y", &cfg.Labels.Box.OffsetYMM)
	s.setInt("box_darkness", &cfg.Labels.Box.Darkness)
	s.setInt("box_module", &cfg.Labels.Box.ModuleSize)
	s.setInt("box_copies", &cfg.Printers.BoxCopies)

	s.setString("box_ip", &cfg.Printers.Box.Host)
	s.setInt("box_port", &cfg.Printers.Box.Port)
	s.setString("prod_ip", &cfg.Printers.Product.Host)
	s.setInt("prod_port", &cfg.Printers.Product.Port)
	s.setString("prod2_ip", &cfg.Printers.Product2.Host)
	s.setInt("prod2_port", &cfg.Printers.Product2.Port)
	if cfg.Printers.Product2.Host != "" {
		cfg.Printers.Product2.Enabled = true
	}
	s.setBool("printer_enabled", &cfg.Printers.Enabled)
	s.setInt("printer_dpi", &cfg.Printers.DPI)

	var scannerHost string
	scannerPort := 0
	s.setString("scanner_ip", &scannerHost)
	s.setInt("scanner_port", &scannerPort)
	if scannerHost != "" {
		if scannerPort == 0 {
			scannerPort = 23
		}
		cfg.Scanner.Address = scannerHost + ":" + strconv.Itoa(scannerPort)
	}

	s.setString("reject_port", &cfg.Reject.Port)
	cfg.Reject.Port = legacySerialPort(cfg.Reject.Port)
	s.setFloat("reject_duration", &cfg.Reject.DurationSeconds)
	s.setFloat("reject_delay", &cfg.Reject.DelaySeconds)

	s.setBool("short_code", &cfg.Line.ForceShortCode)
	s.setBool("date_required", &cfg.Line.DateRequired)
	s.setString("production_date", &cfg.Line.ProductionDate)
	s.setInt("koli_adet", &cfg.Line.ItemsPerBox)
	s.setInt("box_size", &cfg.Line.ItemsPerBox)
	s.setInt("items_per_box", &cfg.Line.ItemsPerBox)
}

// legacySerialPort maps Windows COM names onto the matching Linux ttyS
// device. COM1 is ttyS0.
func legacySerialPort(port string) string {
	upper := strings.ToUpper(strings.TrimSpace(port))
	if !strings.HasPrefix(upper, "COM") {
		return port
	}
	n, err := strconv.Atoi(upper[3:])
	if err != nil || n < 1 {
		return port
	}
	return "/dev/ttyS" + strconv.Itoa(n-1)
}

func (s LegacySettings) setString(key string, dst *string) {
	v, ok := s[key]
	if !ok || v == nil {
		return
	}
	switch val := v.(type) {
	case string:
		*dst = strings.TrimSpace(val)
	case float64:
		*dst = strconv.FormatFloat(val, 'f', -1, 64)
	}
}

func (s LegacySettings) setFloat(key string, dst *float64) {
	if f, ok := s.number(key); ok {
		*dst = f
	}
}

func (s LegacySettings) setInt(key string, dst *int) {
	if f, ok := s.number(key); ok {
		*dst = int(f)
	}
}

func (s LegacySettings) setBool(key string, dst *bool) {
	v, ok := s[key]
	if !ok || v == nil {
		return
	}
	switch val := v.(type) {
	case bool:
		*dst = val
	case float64:
		*dst = val != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "true", "yes", "on":
			*dst = true
		case "0", "false", "no", "off", "":
			*dst = false
		}
	}
}

// number accepts JSON numbers and numeric strings, including a decimal comma.
func (s LegacySettings) number(key string) (float64, bool) {
	v, ok := s[key]
	if !ok || v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(val), ",", "."), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
