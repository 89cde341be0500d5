// internal/workers/application/send-notification/config.go
package sendnotification

import "time"

type Config struct {
	// RequireDelivery fails the job (with retries) when the email was not
	// delivered instead of completing it with Delivered=false.
	RequireDelivery bool
	Timeout         time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
