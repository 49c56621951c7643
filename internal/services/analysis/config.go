// internal/services/analysis/config.go
package analysis

import (
	"time"

	"leadgate/internal/common/config"
)

type Config struct {
	URL     string
	Timeout time.Duration
	// MaxResponseBytes bounds how much of the response body is read.
	MaxResponseBytes int64
}

func NewConfig(api config.APIConfig) *Config {
	return &Config{
		URL:              api.AnalyzeURL(),
		Timeout:          config.GetDuration(api.Timeout),
		MaxResponseBytes: 16 << 20,
	}
}
