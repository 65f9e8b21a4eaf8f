package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLine(); err != nil {
		return err
	}
	if err := c.validateScanner(); err != nil {
		return err
	}
	if err := c.validatePrinters(); err != nil {
		return err
	}
	if err := c.validateLabels(); err != nil {
		return err
	}
	if err := c.validateReject(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic %q must be an http(s) URL", topic)
	}
	return nil
}

func (c *Config) validateLine() error {
	if c.Line.ItemsPerBox < 0 {
		return errors.New("line.items_per_box must be zero or positive")
	}
	if c.Line.ProductionDate != "" && !ValidProductionDate(c.Line.ProductionDate) {
		return fmt.Errorf("line.production_date %q must use DD.MM.YYYY", c.Line.ProductionDate)
	}
	return nil
}

func (c *Config) validateScanner() error {
	if !c.Scanner.Enabled {
		return nil
	}
	if c.Scanner.Address == "" {
		return errors.New("scanner.address is required when the scanner is enabled")
	}
	if _, _, err := net.SplitHostPort(c.Scanner.Address); err != nil {
		return fmt.Errorf("scanner.address must be host:port: %w", err)
	}
	return nil
}

func (c *Config) validatePrinters() error {
	printers := map[string]Printer{
		"box":      c.Printers.Box,
		"product":  c.Printers.Product,
		"product2": c.Printers.Product2,
	}
	for name, p := range printers {
		if p.Port < 1 || p.Port > 65535 {
			return fmt.Errorf("printers.%s.port must be between 1 and 65535", name)
		}
	}
	return nil
}

func (c *Config) validateLabels() error {
	labels := map[string]Label{
		"product":  c.Labels.Product,
		"product2": c.Labels.Product2,
		"box":      c.Labels.Box,
	}
	for name, l := range labels {
		if l.WidthMM <= 0 || l.HeightMM <= 0 {
			return fmt.Errorf("labels.%s width_mm and height_mm must be positive", name)
		}
		if l.Darkness > 30 {
			return fmt.Errorf("labels.%s.darkness must be between 0 and 30", name)
		}
	}
	return nil
}

func (c *Config) validateReject() error {
	if c.Reject.Enabled && c.Reject.Port == "" {
		return errors.New("reject.port is required when the reject actuator is enabled")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

// ValidProductionDate reports whether value is a real DD.MM.YYYY date.
func ValidProductionDate(value string) bool {
	if len(value) != len(ProductionDateLayout) {
		return false
	}
	_, err := time.Parse(ProductionDateLayout, value)
	return err == nil
}
