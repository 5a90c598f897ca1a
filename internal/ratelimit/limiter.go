package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const cleanupInterval = 5 * time.Minute

// exemptPaths are never rate limited.
var exemptPaths = map[string]struct{}{
	"/":       {},
	"/health": {},
}

// Limiter enforces per-client-IP request limits over minute and hour windows.
// Counting happens in memory by default, or in Redis when a client is
// supplied, so multiple instances share one budget.
type Limiter struct {
	perMinute int
	perHour   int

	rdb *redis.Client

	mu          sync.Mutex
	minuteHits  map[string][]time.Time
	hourHits    map[string][]time.Time
	lastCleanup time.Time
}

// New constructs an in-memory Limiter.
func New(perMinute, perHour int) *Limiter {
	return &Limiter{
		perMinute:   perMinute,
		perHour:     perHour,
		minuteHits:  map[string][]time.Time{},
		hourHits:    map[string][]time.Time{},
		lastCleanup: time.Now(),
	}
}

// NewWithRedis constructs a Limiter counting in Redis.
func NewWithRedis(perMinute, perHour int, rdb *redis.Client) *Limiter {
	l := New(perMinute, perHour)
	l.rdb = rdb
	return l
}

// clientIP resolves the caller address, honoring X-Forwarded-For when behind a
// proxy.
func clientIP(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.SplitN(forwarded, ",", 2)[0])
	}
	return c.ClientIP()
}

// Middleware returns the gin middleware applying the limits.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exempt := exemptPaths[c.Request.URL.Path]; exempt {
			c.Next()
			return
		}

		ip := clientIP(c)
		minuteUsed, hourUsed, allowed := l.take(c.Request.Context(), ip)
		if !allowed {
			limit := l.perMinute
			window := "minute"
			if hourUsed >= l.perHour {
				limit = l.perHour
				window = "hour"
			}
			log.Warnf("ratelimit: limit exceeded for %s (%s window)", ip, window)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": fmt.Sprintf("Too many requests. Limit: %d requests per %s.", limit, window),
			})
			return
		}

		c.Header("X-RateLimit-Limit-Minute", strconv.Itoa(l.perMinute))
		c.Header("X-RateLimit-Remaining-Minute", strconv.Itoa(maxInt(l.perMinute-minuteUsed, 0)))
		c.Header("X-RateLimit-Limit-Hour", strconv.Itoa(l.perHour))
		c.Header("X-RateLimit-Remaining-Hour", strconv.Itoa(maxInt(l.perHour-hourUsed, 0)))
		c.Next()
	}
}

// take records one request for ip and reports the counts after recording.
// allowed is false when either window was already full.
func (l *Limiter) take(ctx context.Context, ip string) (minuteUsed, hourUsed int, allowed bool) {
	if l.rdb != nil {
		minuteUsed, hourUsed, allowed = l.takeRedis(ctx, ip)
		return
	}
	return l.takeMemory(ip)
}

func (l *Limiter) takeMemory(ip string) (int, int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.cleanupLocked(now)

	minuteCutoff := now.Add(-time.Minute)
	hourCutoff := now.Add(-time.Hour)

	minuteHits := pruneBefore(l.minuteHits[ip], minuteCutoff)
	hourHits := pruneBefore(l.hourHits[ip], hourCutoff)

	if len(minuteHits) >= l.perMinute || len(hourHits) >= l.perHour {
		l.minuteHits[ip] = minuteHits
		l.hourHits[ip] = hourHits
		return len(minuteHits), len(hourHits), false
	}

	l.minuteHits[ip] = append(minuteHits, now)
	l.hourHits[ip] = append(hourHits, now)
	return len(minuteHits) + 1, len(hourHits) + 1, true
}

// takeRedis counts with fixed per-window keys. A Redis failure fails open:
// blocking live traffic over a limiter backend outage is the worse tradeoff.
func (l *Limiter) takeRedis(ctx context.Context, ip string) (int, int, bool) {
	now := time.Now()
	minuteKey := fmt.Sprintf("ratelimit:%s:m:%d", ip, now.Unix()/60)
	hourKey := fmt.Sprintf("ratelimit:%s:h:%d", ip, now.Unix()/3600)

	pipe := l.rdb.Pipeline()
	minuteIncr := pipe.Incr(ctx, minuteKey)
	pipe.Expire(ctx, minuteKey, 2*time.Minute)
	hourIncr := pipe.Incr(ctx, hourKey)
	pipe.Expire(ctx, hourKey, 2*time.Hour)
	if _, errExec := pipe.Exec(ctx); errExec != nil {
		log.WithError(errExec).Warn("ratelimit: redis unavailable, allowing request")
		return 0, 0, true
	}

	minuteUsed := int(minuteIncr.Val())
	hourUsed := int(hourIncr.Val())
	return minuteUsed, hourUsed, minuteUsed <= l.perMinute && hourUsed <= l.perHour
}

// cleanupLocked drops stale per-IP slices so idle clients do not accumulate.
func (l *Limiter) cleanupLocked(now time.Time) {
	if now.Sub(l.lastCleanup) < cleanupInterval {
		return
	}
	minuteCutoff := now.Add(-time.Minute)
	hourCutoff := now.Add(-time.Hour)
	for ip, hits := range l.minuteHits {
		pruned := pruneBefore(hits, minuteCutoff)
		if len(pruned) == 0 {
			delete(l.minuteHits, ip)
			continue
		}
		l.minuteHits[ip] = pruned
	}
	for ip, hits := range l.hourHits {
		pruned := pruneBefore(hits, hourCutoff)
		if len(pruned) == 0 {
			delete(l.hourHits, ip)
			continue
		}
		l.hourHits[ip] = pruned
	}
	l.lastCleanup = now
}

func pruneBefore(hits []time.Time, cutoff time.Time) []time.Time {
	out := hits[:0]
	for _, ts := range hits {
		if ts.After(cutoff) {
			out = append(out, ts)
		}
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
