package config

const (
	defaultLogDir              = "~/.local/share/sbsconv/logs"
	defaultStateDir            = "~/.local/share/sbsconv"
	defaultConverterBinary     = "oiiotool"
	defaultCompression         = "dwab:45"
	defaultPixelType           = "float"
	defaultPollIntervalSeconds = 10
	defaultMinIdleDelaySeconds = 60
	defaultIdleMultiplier      = 3.0
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
	defaultNotifyTimeout       = 10
)

// Compressions lists the compression modes the converter accepts.
var Compressions = []string{"dwab:45", "dwaa:45", "zip", "none"}

// PixelTypes lists the output pixel datatypes the converter accepts.
var PixelTypes = []string{"float", "half"}

// Default returns a Config populated with repository defaults. MaxWorkers
// is left at zero and resolved to the CPU count during normalization.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Converter: Converter{
			Binary:      defaultConverterBinary,
			Compression: defaultCompression,
			PixelType:   defaultPixelType,
		},
		Live: Live{
			PollIntervalSeconds: defaultPollIntervalSeconds,
			MinIdleDelaySeconds: defaultMinIdleDelaySeconds,
			IdleMultiplier:      defaultIdleMultiplier,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Promotion:      true,
			RunComplete:    true,
			Errors:         true,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
