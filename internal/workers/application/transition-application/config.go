// internal/workers/application/transition-application/config.go
package transitionapplication

import "time"

type Config struct {
	// DefaultActor is recorded as the acting admin when the process does
	// not supply one.
	DefaultActor string
	Timeout      time.Duration
}

func LoadConfig() *Config {
	return &Config{
		DefaultActor: "workflow@franchisee-hub",
		Timeout:      30 * time.Second,
	}
}
