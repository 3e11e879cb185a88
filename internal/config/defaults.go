package config

// Defaults applied by the loader before unmarshalling user config.
const (
	DefaultHost = "localhost"
	DefaultPort = 8080

	DefaultLogLevel = "info"

	DefaultAPIToolTimeoutSeconds = 30
	DefaultAPIToolCacheTTL       = 60
)

// GetDefaultConfig returns the configuration used when no config.yaml
// exists.
func GetDefaultConfig() HubConfig {
	return HubConfig{
		HTTP: HTTPConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}
