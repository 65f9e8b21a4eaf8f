package config

const (
	defaultConfigPath         = "~/.config/packline/config.toml"
	defaultDataDir            = "~/.local/share/packline"
	defaultLogDir             = "~/.local/share/packline/logs"
	defaultExportDir          = "~/packline/exports"
	defaultBackupDir          = "~/.local/share/packline/backups"
	defaultScannerAddress     = "192.168.1.12:23"
	defaultScannerReconnect   = 3
	defaultScannerReadTimeout = 10
	defaultPrinterPort        = 9100
	defaultPrinterDPI         = 203
	defaultPrinterTimeout     = 2
	defaultBoxCopies          = 1
	defaultDarkness           = 20
	defaultModuleSize         = 6
	defaultRejectPort         = "/dev/ttyS1"
	defaultRejectDuration     = 0.5
	defaultHealthInterval     = 5
	defaultHealthDialTimeout  = 600
	defaultNotifyTimeout      = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"

	minModuleSize     = 2
	maxModuleSize     = 12
	minRejectDuration = 0.05

	// ProductionDateLayout is the Go layout for the DD.MM.YYYY production date.
	ProductionDateLayout = "02.01.2006"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			ExportDir: defaultExportDir,
			BackupDir: defaultBackupDir,
		},
		Line: Line{
			ResumeActiveJob: true,
		},
		Scanner: Scanner{
			Enabled:            true,
			Address:            defaultScannerAddress,
			ReconnectSeconds:   defaultScannerReconnect,
			ReadTimeoutSeconds: defaultScannerReadTimeout,
		},
		Printers: Printers{
			Enabled:        true,
			DPI:            defaultPrinterDPI,
			TimeoutSeconds: defaultPrinterTimeout,
			BoxCopies:      defaultBoxCopies,
			Box:            Printer{Enabled: true, Port: defaultPrinterPort},
			Product:        Printer{Enabled: true, Port: defaultPrinterPort},
			Product2:       Printer{Port: defaultPrinterPort},
		},
		Labels: Labels{
			Product:  Label{WidthMM: 50, HeightMM: 30, Darkness: defaultDarkness, ModuleSize: defaultModuleSize},
			Product2: Label{WidthMM: 50, HeightMM: 30, Darkness: defaultDarkness, ModuleSize: defaultModuleSize},
			Box:      Label{WidthMM: 50, HeightMM: 50, Darkness: defaultDarkness, ModuleSize: defaultModuleSize},
		},
		Reject: Reject{
			Enabled:         true,
			Port:            defaultRejectPort,
			DurationSeconds: defaultRejectDuration,
		},
		Health: Health{
			IntervalSeconds:   defaultHealthInterval,
			DialTimeoutMillis: defaultHealthDialTimeout,
			WatchHotplug:      true,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
