package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware.
// When Enabled is false or no Redis client is configured, caching will be disabled.
// Methods lists the HTTP methods to cache (e.g. GET, HEAD).  TTL defines the
// lifetime of cache entries.  KeyStrategy determines which parts of the request
// contribute to the cache key ("route", "route_query", "method_route" or
// "method_route_query").  Prefix and
// MaxBodyBytes allow control over namespacing and the maximum size of
// responses to cache.
type CacheConfig struct {
	Enabled      bool          `env:"ENABLED" envDefault:"true"`
	MethodList   []string      `env:"METHODS" envDefault:"GET" envSeparator:","`
	TTL          time.Duration `env:"TTL" envDefault:"30s"`
	KeyStrategy  string        `env:"KEY_STRATEGY" envDefault:"route_query"`
	Prefix       string        `env:"PREFIX" envDefault:"cache"`
	MaxBodyBytes int           `env:"MAX_BODY_BYTES" envDefault:"1048576"`

	// Methods is the upper-cased set built from MethodList by normalize.
	Methods map[string]bool `env:"-"`
}

func (c *CacheConfig) normalize() {
	c.Methods = parseMethods(c.MethodList)
	if len(c.Methods) == 0 {
		c.Methods = map[string]bool{"GET": true}
	}
	if c.TTL <= 0 {
		c.TTL = time.Second
	}
	switch c.KeyStrategy {
	case "route", "route_query", "method_route", "method_route_query":
	default:
		c.KeyStrategy = "route_query"
	}
	if c.Prefix == "" {
		c.Prefix = "cache"
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 1 << 20
	}
}

func parseMethods(list []string) map[string]bool {
	m := map[string]bool{}
	for _, p := range list {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
