// internal/services/delivery/config.go
package delivery

import (
	"time"

	"leadgate/internal/common/config"
)

// Mode selects the request body sent to the delivery endpoint.
type Mode int

const (
	// ModeReport posts the full result payload.
	ModeReport Mode = iota
	// ModeSubscribe posts only the email address.
	ModeSubscribe
)

type Config struct {
	URL     string
	Mode    Mode
	Timeout time.Duration
}

func NewConfig(api config.APIConfig) *Config {
	mode := ModeReport
	if api.DeliveryPath == config.DeliveryPathSubscribe {
		mode = ModeSubscribe
	}
	return &Config{
		URL:     api.DeliveryURL(),
		Mode:    mode,
		Timeout: config.GetDuration(api.DeliveryTimeout),
	}
}
