package config

// Global flag-backed settings shared by the command tree.
var (
	// ConfigPath is the path to the configuration file.
	ConfigPath = DefaultConfigPath

	// LogLevel is the zap level for CLI and daemon logging.
	LogLevel = "info"
)
