// internal/common/config/loader.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// DefaultBaseURL is used when no base URL is configured.
	DefaultBaseURL = "https://pipelineom-production.up.railway.app"

	// BaseURLEnv overrides api.base_url when set.
	BaseURLEnv = "LEADGATE_API_URL"

	DeliveryPathReport    = "/send-report"
	DeliveryPathSubscribe = "/subscribe"
)

// Load reads configs/config.yaml (or the file at path when non-empty), merges
// config.<APP_ENVIRONMENT>.yaml, then applies environment overrides.
func Load(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading base config: %w", err)
			}
		}

		env := os.Getenv("APP_ENVIRONMENT")
		if env == "" {
			env = "development"
		}
		v.SetConfigName(fmt.Sprintf("config.%s", env))
		_ = v.MergeInConfig() // optional
	}

	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideFromEnv(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "leadgate")
	v.SetDefault("app.environment", "development")

	v.SetDefault("api.base_url", DefaultBaseURL)
	v.SetDefault("api.analyze_path", "/analyze")
	v.SetDefault("api.delivery_path", DeliveryPathReport)
	v.SetDefault("api.timeout", 180000)
	v.SetDefault("api.delivery_timeout", 15000)

	v.SetDefault("narrator.message_interval", 2500)
	v.SetDefault("narrator.progress_interval", 400)
	v.SetDefault("narrator.progress_step", 2)
	v.SetDefault("narrator.progress_cap", 95)
	v.SetDefault("narrator.finish_delay", 600)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "leadgate.log")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.address", ":9464")
}

// loadEnvFile loads the first .env found in the working directory, its
// parents, or the module root.
func loadEnvFile() string {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

func overrideFromEnv(cfg *Config) {
	if val := os.Getenv(BaseURLEnv); val != "" {
		cfg.API.BaseURL = val
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "leadgate"
	}

	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = DefaultBaseURL
	}
	if cfg.API.AnalyzePath == "" {
		cfg.API.AnalyzePath = "/analyze"
	}
	if cfg.API.DeliveryPath == "" {
		cfg.API.DeliveryPath = DeliveryPathReport
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 180000
	}
	if cfg.API.DeliveryTimeout == 0 {
		cfg.API.DeliveryTimeout = 15000
	}

	if cfg.Narrator.MessageInterval == 0 {
		cfg.Narrator.MessageInterval = 2500
	}
	if cfg.Narrator.ProgressInterval == 0 {
		cfg.Narrator.ProgressInterval = 400
	}
	if cfg.Narrator.ProgressStep == 0 {
		cfg.Narrator.ProgressStep = 2
	}
	if cfg.Narrator.ProgressCap == 0 {
		cfg.Narrator.ProgressCap = 95
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "leadgate.log"
	}

	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":9464"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	u, err := url.Parse(cfg.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute http(s) URL, got %q", cfg.API.BaseURL)
	}
	if !strings.HasPrefix(cfg.API.AnalyzePath, "/") || !strings.HasPrefix(cfg.API.DeliveryPath, "/") {
		return fmt.Errorf("api paths must start with /")
	}
	if cfg.API.Timeout < 0 || cfg.API.DeliveryTimeout < 0 {
		return fmt.Errorf("api timeouts must not be negative")
	}

	if cfg.Narrator.MessageInterval <= 0 || cfg.Narrator.ProgressInterval <= 0 {
		return fmt.Errorf("narrator intervals must be positive")
	}
	if cfg.Narrator.ProgressStep <= 0 {
		return fmt.Errorf("narrator.progress_step must be positive")
	}
	if cfg.Narrator.ProgressCap <= 0 || cfg.Narrator.ProgressCap >= 100 {
		return fmt.Errorf("narrator.progress_cap must be between 1 and 99")
	}
	if cfg.Narrator.FinishDelay < 0 {
		return fmt.Errorf("narrator.finish_delay must not be negative")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
