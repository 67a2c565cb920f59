// internal/workers/quote/process-estimate/config.go
package processestimate

import "time"

type Config struct {
	Timeout       time.Duration
	MaxJobsActive int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:       5 * time.Minute,
		MaxJobsActive: 5,
	}
}
