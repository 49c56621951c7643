// internal/common/config/config.go
package config

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	API      APIConfig      `mapstructure:"api"`
	Narrator NarratorConfig `mapstructure:"narrator"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// APIConfig locates the remote analysis and delivery endpoints.
type APIConfig struct {
	BaseURL         string `mapstructure:"base_url"`
	AnalyzePath     string `mapstructure:"analyze_path"`
	DeliveryPath    string `mapstructure:"delivery_path"`
	Timeout         int    `mapstructure:"timeout"`          // milliseconds
	DeliveryTimeout int    `mapstructure:"delivery_timeout"` // milliseconds
}

// AnalyzeURL returns the absolute analyze endpoint.
func (a APIConfig) AnalyzeURL() string {
	return a.BaseURL + a.AnalyzePath
}

// DeliveryURL returns the absolute report delivery endpoint.
func (a APIConfig) DeliveryURL() string {
	return a.BaseURL + a.DeliveryPath
}

// NarratorConfig tunes the progress display shown while analyzing.
type NarratorConfig struct {
	Phrases          []string `mapstructure:"phrases"`
	MessageInterval  int      `mapstructure:"message_interval"`  // milliseconds
	ProgressInterval int      `mapstructure:"progress_interval"` // milliseconds
	ProgressStep     int      `mapstructure:"progress_step"`
	ProgressCap      int      `mapstructure:"progress_cap"`
	FinishDelay      int      `mapstructure:"finish_delay"` // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// MetricsConfig controls the optional Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}
