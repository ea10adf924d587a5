// Command rate limiting. Each caller gets a fixed window of commands;
// commands that shut the reactor down are never limited.
package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// commandsPerMinute is the per-caller command budget.
const commandsPerMinute = 600

// unlimitedCommands always pass the limiter.
var unlimitedCommands = map[string]bool{
	"az5":  true,
	"stop": true,
}

// RateLimiter counts commands per caller in fixed windows.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time

	done      chan struct{}
	closeOnce sync.Once
}

type window struct {
	used  int
	start time.Time
}

// NewRateLimiter allows limit commands per caller every period. Close stops
// the background sweep.
func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	rl := &RateLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Close stops the sweep goroutine.
func (rl *RateLimiter) Close() {
	rl.closeOnce.Do(func() { close(rl.done) })
}

// Allow spends one command for caller. When the budget is gone it returns
// false and the time until the window reopens.
func (rl *RateLimiter) Allow(caller string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[caller]
	if !ok || now.Sub(w.start) >= rl.period {
		rl.windows[caller] = &window{used: 1, start: now}
		return true, 0
	}
	if w.used < rl.limit {
		w.used++
		return true, 0
	}
	return false, w.start.Add(rl.period).Sub(now)
}

// AllowCommand is Allow with the shutdown commands exempted.
func (rl *RateLimiter) AllowCommand(caller, cmdType string) (bool, time.Duration) {
	if unlimitedCommands[cmdType] {
		return true, 0
	}
	return rl.Allow(caller)
}

func (rl *RateLimiter) sweepLoop() {
	t := time.NewTicker(2 * rl.period)
	defer t.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-t.C:
			rl.sweep()
		}
	}
}

func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for caller, w := range rl.windows {
		if now.Sub(w.start) > rl.period {
			delete(rl.windows, caller)
		}
	}
}

// retryAfterSeconds rounds a wait up to whole seconds for the Retry-After header.
func retryAfterSeconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}

// clientIP returns the caller address without port, preferring the first
// X-Forwarded-For hop for proxied requests.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
