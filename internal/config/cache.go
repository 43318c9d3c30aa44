package config

import (
    "strings"
    "time"
)

// CacheConfig controls the Redis response cache placed in front of the
// availability endpoint.  Entries are short lived because availability
// changes with every booking.
type CacheConfig struct {
    Enabled      bool
    TTL          time.Duration
    Prefix       string
    MaxBodyBytes int
    // VaryQuery lists the query parameters that take part in the key.
    // Anything else in the query string is ignored.
    VaryQuery []string
}

// LoadCacheConfig reads the CACHE_* variables.
func LoadCacheConfig() CacheConfig {
    cfg := CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        TTL:          envDur("CACHE_TTL", 5*time.Second),
        Prefix:       envStr("CACHE_PREFIX", "avail"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 64<<10),
        VaryQuery:    splitList(envStr("CACHE_VARY_QUERY", "checkIn,checkOut")),
    }
    if cfg.TTL <= 0 {
        cfg.Enabled = false
    }
    return cfg
}

func splitList(s string) []string {
    var out []string
    for _, p := range strings.Split(s, ",") {
        if p = strings.TrimSpace(p); p != "" {
            out = append(out, p)
        }
    }
    return out
}
