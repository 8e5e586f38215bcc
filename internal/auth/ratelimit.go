package auth

import (
	"sync"
	"time"
)

// RateLimiter throttles login attempts per client IP and username pair.
type RateLimiter struct {
	mu       sync.Mutex
	attempts map[string]*attemptRecord
	cfg      RateLimitConfig
	stop     chan struct{}
	stopOnce sync.Once
}

type attemptRecord struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// RateLimitConfig contains configuration for the rate limiter.
type RateLimitConfig struct {
	MaxAttempts     int           // failures allowed inside the window
	WindowDuration  time.Duration // window for counting failures
	LockoutDuration time.Duration // lockout once MaxAttempts is reached
	CleanupInterval time.Duration // how often stale records are dropped
}

// DefaultRateLimitConfig returns the defaults used when config values are zero.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxAttempts:     5,
		WindowDuration:  15 * time.Minute,
		LockoutDuration: 30 * time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

// NewRateLimiter creates a rate limiter and starts its cleanup loop.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	def := DefaultRateLimitConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.WindowDuration <= 0 {
		cfg.WindowDuration = def.WindowDuration
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = def.LockoutDuration
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}

	rl := &RateLimiter{
		attempts: make(map[string]*attemptRecord),
		cfg:      cfg,
		stop:     make(chan struct{}),
	}
	go rl.cleanupLoop()

	return rl
}

// Stop stops the background cleanup goroutine. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func key(ip, username string) string {
	return ip + "|" + username
}

// Allow reports whether a login attempt may proceed and, if not, how long
// the caller must wait.
func (rl *RateLimiter) Allow(ip, username string) (bool, time.Duration) {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	record, ok := rl.attempts[key(ip, username)]
	if !ok {
		return true, 0
	}
	if now.Before(record.lockedUntil) {
		return false, record.lockedUntil.Sub(now)
	}
	if now.Sub(record.firstAttempt) > rl.cfg.WindowDuration {
		return true, 0
	}
	if record.count < rl.cfg.MaxAttempts {
		return true, 0
	}
	return false, rl.cfg.LockoutDuration
}

// RecordFailure counts a failed attempt and reports whether it triggered a lockout.
func (rl *RateLimiter) RecordFailure(ip, username string) (bool, time.Duration) {
	now := time.Now()
	k := key(ip, username)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	record, ok := rl.attempts[k]
	if !ok || now.Sub(record.firstAttempt) > rl.cfg.WindowDuration {
		record = &attemptRecord{firstAttempt: now}
		rl.attempts[k] = record
	}

	record.count++
	if record.count >= rl.cfg.MaxAttempts {
		record.lockedUntil = now.Add(rl.cfg.LockoutDuration)
		return true, rl.cfg.LockoutDuration
	}
	return false, 0
}

// RecordSuccess clears the failure record after a successful login.
func (rl *RateLimiter) RecordSuccess(ip, username string) {
	rl.mu.Lock()
	delete(rl.attempts, key(ip, username))
	rl.mu.Unlock()
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.stop:
			return
		}
	}
}

func (rl *RateLimiter) cleanup(now time.Time) {
	expiry := rl.cfg.WindowDuration + rl.cfg.LockoutDuration

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for k, record := range rl.attempts {
		if now.Sub(record.firstAttempt) > expiry && !now.Before(record.lockedUntil) {
			delete(rl.attempts, k)
		}
	}
}
