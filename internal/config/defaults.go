package config

const (
	defaultLogDir          = "~/.local/share/bobbin/logs"
	defaultArchiveFileName = "events.db"
	defaultSocketFileName  = "bobbin.sock"
	defaultLockFileName    = "bobbin.lock"
	defaultPrimaryLog      = "PVSS_II.log"
	defaultFilePattern     = "*.log"
	defaultHubCapacity     = 4096
	defaultForwardTopic    = "bobbin-events"
	defaultForwardClientID = "bobbin"
	defaultForwardTimeout  = 10
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults. The watch
// directory has no sensible default and must be configured.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Ingest: Ingest{
			PrimaryLog:  defaultPrimaryLog,
			FilePattern: defaultFilePattern,
			HubCapacity: defaultHubCapacity,
		},
		Forward: Forward{
			Topic:          defaultForwardTopic,
			ClientID:       defaultForwardClientID,
			TimeoutSeconds: defaultForwardTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
