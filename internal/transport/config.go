package transport

import "time"

// BackoffConfig defines dial retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines connection and per-frame deadlines.
type Config struct {
	DialTimeout  time.Duration
	DialAttempts int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Backoff      BackoffConfig
}

// DefaultConfig leaves room for a human to confirm on the device between
// request and reply.
func DefaultConfig() Config {
	return Config{
		DialTimeout:  5 * time.Second,
		DialAttempts: 3,
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 10 * time.Second,
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
	}
}
