package middleware

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"smartliving/site/internal/config"
)

const (
	limiterSweepInterval = 10 * time.Minute
	limiterIdleTTL       = 30 * time.Minute
)

type clientLimiter struct {
	soft     *rate.Limiter
	hard     *rate.Limiter
	lastSeen time.Time
}

// RateLimiter guards public form submissions with two token buckets per
// client. Exhausting the hard bucket always rejects; exhausting the soft
// bucket rejects with 418 until the client passes a captcha.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter

	softRate, softBurst int
	hardRate, hardBurst int
}

// NewRateLimiter starts a sweeper that drops idle clients until ctx is done.
func NewRateLimiter(ctx context.Context, cfg *config.Config) *RateLimiter {
	rl := &RateLimiter{
		clients:   make(map[string]*clientLimiter),
		softRate:  cfg.RateLimitSoftRefillRate,
		softBurst: cfg.RateLimitSoftBucketSize,
		hardRate:  cfg.RateLimitHardRefillRate,
		hardBurst: cfg.RateLimitHardBucketSize,
	}
	go rl.sweep(ctx)
	return rl
}

func clientKey(c *gin.Context) string {
	return c.ClientIP() + "|" + c.GetHeader(HeaderFingerprint) + "|" + c.GetHeader(HeaderSPASession)
}

func (rl *RateLimiter) limiterFor(key string) *clientLimiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.clients[key]
	if !ok {
		l = &clientLimiter{
			soft: rate.NewLimiter(rate.Limit(rl.softRate), rl.softBurst),
			hard: rate.NewLimiter(rate.Limit(rl.hardRate), rl.hardBurst),
		}
		rl.clients[key] = l
	}
	l.lastSeen = time.Now()
	return l
}

func (rl *RateLimiter) sweep(ctx context.Context) {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.mu.Lock()
			removed := 0
			for key, l := range rl.clients {
				if time.Since(l.lastSeen) > limiterIdleTTL {
					delete(rl.clients, key)
					removed++
				}
			}
			rl.mu.Unlock()
			if removed > 0 {
				log.Printf("middleware: rate limiter dropped %d idle clients", removed)
			}
		}
	}
}

// Limit must run after CaptchaMiddleware.
func (rl *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := clientKey(c)
		l := rl.limiterFor(key)

		if !l.hard.Allow() {
			log.Printf("middleware: hard rate limit hit by %s on %s", key, c.FullPath())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		if !c.GetBool(ContextKeyIsHumanVerified) && !l.soft.Allow() {
			log.Printf("middleware: soft rate limit hit by %s on %s, captcha required", key, c.FullPath())
			c.AbortWithStatusJSON(http.StatusTeapot, gin.H{"error": "Captcha validation required"})
			return
		}
		c.Next()
	}
}
