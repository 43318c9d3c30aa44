package middleware

import (
    "math"
    "net/http"
    "strconv"
    "strings"
    "sync"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "golang.org/x/time/rate"

    "github.com/iliyamo/hotel-reservation/internal/config"
)

// tokenBucketScript refills and takes one token atomically.  It returns
// {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
    local key = KEYS[1]
    local now_ms = tonumber(ARGV[1])
    local capacity = tonumber(ARGV[2])
    local refill_tokens = tonumber(ARGV[3])
    local interval_ms = tonumber(ARGV[4])
    local ttl_seconds = tonumber(ARGV[5])

    local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
    local tokens = tonumber(state[1])
    local last_refill = tonumber(state[2])
    if tokens == nil or last_refill == nil then
        tokens = capacity
        last_refill = now_ms
    end

    local intervals = math.floor(math.max(0, now_ms - last_refill) / interval_ms)
    if intervals > 0 then
        tokens = math.min(capacity, tokens + intervals * refill_tokens)
        last_refill = last_refill + intervals * interval_ms
    end

    local allowed = 0
    local retry_after_ms = 0
    if tokens > 0 then
        allowed = 1
        tokens = tokens - 1
    else
        retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
    end

    redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
    redis.call('EXPIRE', key, ttl_seconds)
    return { allowed, tokens, retry_after_ms }
`)

// maxLocalBuckets caps the fallback limiter so a long Redis outage cannot
// grow it without bound.
const maxLocalBuckets = 10000

// localBuckets is the in-process limiter used while Redis is absent or
// failing.  Limits are then per instance instead of global.  Buckets idle
// for longer than idle are dropped; by then they would have refilled.
type localBuckets struct {
    mu        sync.Mutex
    limit     rate.Limit
    burst     int
    idle      time.Duration
    max       int
    now       func() time.Time
    lastSweep time.Time
    buckets   map[string]*localBucket
}

type localBucket struct {
    lim      *rate.Limiter
    lastSeen time.Time
}

func newLocalBuckets(cfg config.RateLimitConfig) *localBuckets {
    idle := cfg.TTL
    if full := cfg.RefillInterval * time.Duration(cfg.Capacity); idle < full {
        idle = full
    }
    if idle <= 0 {
        idle = time.Minute
    }
    return &localBuckets{
        limit:   rate.Limit(cfg.PerSecond()),
        burst:   cfg.Capacity,
        idle:    idle,
        max:     maxLocalBuckets,
        now:     time.Now,
        buckets: map[string]*localBucket{},
    }
}

func (l *localBuckets) allow(key string) (bool, time.Duration) {
    l.mu.Lock()
    now := l.now()
    if now.Sub(l.lastSweep) >= l.idle {
        l.sweepLocked(now)
    }
    b, ok := l.buckets[key]
    if !ok {
        if len(l.buckets) >= l.max {
            l.evictOldestLocked()
        }
        b = &localBucket{lim: rate.NewLimiter(l.limit, l.burst)}
        l.buckets[key] = b
    }
    b.lastSeen = now
    l.mu.Unlock()

    r := b.lim.ReserveN(now, 1)
    if d := r.DelayFrom(now); d > 0 {
        r.CancelAt(now)
        return false, d
    }
    return true, 0
}

func (l *localBuckets) sweepLocked(now time.Time) {
    for k, b := range l.buckets {
        if now.Sub(b.lastSeen) >= l.idle {
            delete(l.buckets, k)
        }
    }
    l.lastSweep = now
}

func (l *localBuckets) evictOldestLocked() {
    var oldestKey string
    var oldest time.Time
    for k, b := range l.buckets {
        if oldestKey == "" || b.lastSeen.Before(oldest) {
            oldestKey, oldest = k, b.lastSeen
        }
    }
    delete(l.buckets, oldestKey)
}

func (l *localBuckets) size() int {
    l.mu.Lock()
    defer l.mu.Unlock()
    return len(l.buckets)
}

// NewTokenBucket limits requests per client IP and route.  The bucket lives
// in Redis when rdb is non-nil; Redis errors degrade to the local limiter
// rather than failing the request.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    local := newLocalBuckets(cfg)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := rateKey(cfg.Prefix, c)
            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))

            if rdb != nil {
                allowed, remaining, retry, err := redisTake(c, rdb, cfg, key)
                if err == nil {
                    h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
                    if !allowed {
                        return tooManyRequests(c, retry)
                    }
                    return next(c)
                }
                if cfg.Debug {
                    c.Logger().Warnf("ratelimit: redis error for %s, using local bucket: %v", key, err)
                }
            }

            if ok, retry := local.allow(key); !ok {
                return tooManyRequests(c, retry)
            }
            return next(c)
        }
    }
}

func redisTake(c echo.Context, rdb *redis.Client, cfg config.RateLimitConfig, key string) (bool, int64, time.Duration, error) {
    vals, err := tokenBucketScript.Run(c.Request().Context(), rdb, []string{key},
        time.Now().UnixMilli(),
        cfg.Capacity,
        cfg.RefillTokens,
        cfg.RefillInterval.Milliseconds(),
        int64(cfg.TTL/time.Second),
    ).Int64Slice()
    if err != nil {
        return false, 0, 0, err
    }
    if len(vals) != 3 {
        return false, 0, 0, redis.Nil
    }
    return vals[0] == 1, vals[1], time.Duration(vals[2]) * time.Millisecond, nil
}

func tooManyRequests(c echo.Context, retry time.Duration) error {
    secs := int(math.Ceil(retry.Seconds()))
    c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
    return c.JSON(http.StatusTooManyRequests, echo.Map{
        "error":       "too_many_requests",
        "retry_after": secs,
    })
}

func rateKey(prefix string, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    return strings.Join([]string{prefix, "ip", ip, "route", c.Request().Method + " " + c.Path()}, ":")
}
