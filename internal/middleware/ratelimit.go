// File: internal/middleware/ratelimit.go
package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"ordena_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimiterConfig holds the limits for authenticated API calls (per user)
// and for login attempts (per client IP).
type RateLimiterConfig struct {
	GeneralRate     rate.Limit
	GeneralBurst    int
	LoginRate       rate.Limit
	LoginBurst      int
	CleanupInterval time.Duration
}

// RateLimiterConfigFrom builds the limiter settings from requests per second
// and login attempts per minute.
func RateLimiterConfigFrom(rps float64, burst, loginPerMinute int) RateLimiterConfig {
	if burst <= 0 {
		burst = 1
	}
	if loginPerMinute <= 0 {
		loginPerMinute = 1
	}
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(rps),
		GeneralBurst:    burst,
		LoginRate:       rate.Limit(float64(loginPerMinute) / 60.0),
		LoginBurst:      loginPerMinute,
		CleanupInterval: 5 * time.Minute,
	}
}

type keyedLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

type limiterSet struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*keyedLimiter
}

func newLimiterSet(limit rate.Limit, burst int) *limiterSet {
	return &limiterSet{limit: limit, burst: burst, limiters: make(map[string]*keyedLimiter)}
}

func (s *limiterSet) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	kl, ok := s.limiters[key]
	if !ok {
		kl = &keyedLimiter{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.limiters[key] = kl
	}
	kl.lastAccess = time.Now()
	return kl.limiter
}

func (s *limiterSet) evictOlderThan(cutoff time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, kl := range s.limiters {
		if kl.lastAccess.Before(cutoff) {
			delete(s.limiters, key)
		}
	}
}

func (s *limiterSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// RateLimiter keeps one token bucket per user and per login IP. Idle buckets
// are dropped by a background goroutine that Stop terminates.
type RateLimiter struct {
	config  RateLimiterConfig
	general *limiterSet
	login   *limiterSet
	logger  *zap.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewRateLimiter creates a RateLimiter and starts its cleanup loop.
func NewRateLimiter(config RateLimiterConfig, logger *zap.Logger) *RateLimiter {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	rl := &RateLimiter{
		config:  config,
		general: newLimiterSet(config.GeneralRate, config.GeneralBurst),
		login:   newLimiterSet(config.LoginRate, config.LoginBurst),
		logger:  logger,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCh)
		<-rl.done
	})
}

// GeneralMiddleware limits authenticated requests per user. It must run
// after AuthMiddleware; anonymous requests fall back to the client IP.
func (rl *RateLimiter) GeneralMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if userID := common.GetUserIDFromContext(c); userID != uuid.Nil {
			key = userID.String()
		}
		if !rl.general.get(key).Allow() {
			rl.reject(c, rl.config.GeneralRate, "general", key)
			return
		}
		c.Next()
	}
}

// LoginMiddleware limits login attempts per client IP.
func (rl *RateLimiter) LoginMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if !rl.login.get(key).Allow() {
			rl.reject(c, rl.config.LoginRate, "login", key)
			return
		}
		c.Next()
	}
}

// GeneralLimiterCount and LoginLimiterCount report tracked keys.
func (rl *RateLimiter) GeneralLimiterCount() int { return rl.general.len() }
func (rl *RateLimiter) LoginLimiterCount() int   { return rl.login.len() }

func (rl *RateLimiter) cleanupLoop() {
	defer close(rl.done)
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup drops buckets idle for more than two cleanup intervals.
func (rl *RateLimiter) cleanup(now time.Time) {
	cutoff := now.Add(-2 * rl.config.CleanupInterval)
	rl.general.evictOlderThan(cutoff)
	rl.login.evictOlderThan(cutoff)
}

func (rl *RateLimiter) reject(c *gin.Context, limit rate.Limit, kind, key string) {
	retryAfter := 1
	if limit > 0 {
		retryAfter = int(math.Ceil(1.0 / float64(limit)))
		if retryAfter < 1 {
			retryAfter = 1
		}
	}
	rl.logger.Warn("Rate limit exceeded", zap.String("limit_type", kind), zap.String("key", key))
	c.Header("Retry-After", strconv.Itoa(retryAfter))
	common.RespondWithError(c, common.ErrTooManyRequests)
}
