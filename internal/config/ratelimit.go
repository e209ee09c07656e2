package config

import "time"

// RateLimitConfig configures the token bucket limiter.  Burst and RefillEvery
// are shorthands: a positive Burst overrides Capacity, and a positive
// RefillEvery means "one token every RefillEvery".
type RateLimitConfig struct {
	Enabled        bool          `env:"ENABLED" envDefault:"true"`
	Capacity       int           `env:"CAPACITY" envDefault:"60"`
	RefillTokens   int           `env:"REFILL_TOKENS" envDefault:"1"`
	RefillInterval time.Duration `env:"REFILL_INTERVAL" envDefault:"1s"`
	TTL            time.Duration `env:"TTL" envDefault:"10m"`
	KeyStrategy    string        `env:"KEY_STRATEGY" envDefault:"ip_user_route"`
	Prefix         string        `env:"PREFIX" envDefault:"rl"`
	Debug          bool          `env:"DEBUG" envDefault:"false"`
	Burst          int           `env:"BURST" envDefault:"-1"`
	RefillEvery    time.Duration `env:"REFILL_EVERY" envDefault:"0s"`

	// AuthCapacity bounds the stricter bucket applied to /auth routes.
	AuthCapacity int `env:"AUTH_CAPACITY" envDefault:"10"`
}

func (c *RateLimitConfig) normalize() {
	if c.Burst > 0 {
		c.Capacity = c.Burst
	}
	if c.RefillEvery > 0 {
		c.RefillTokens = 1
		c.RefillInterval = c.RefillEvery
	}
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.AuthCapacity < 1 {
		c.AuthCapacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	// keys must outlive a full refill of an emptied bucket
	minTTL := 5 * c.RefillInterval
	if c.TTL < minTTL {
		c.TTL = minTTL
	}
	if c.Prefix == "" {
		c.Prefix = "rl"
	}
}

// ForAuth returns a copy tuned for the authentication endpoints.
func (c RateLimitConfig) ForAuth() RateLimitConfig {
	out := c
	out.Capacity = c.AuthCapacity
	out.Prefix = c.Prefix + ":auth"
	return out
}
