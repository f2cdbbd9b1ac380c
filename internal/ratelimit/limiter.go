package ratelimit

import (
	"strings"
	"sync"
	"time"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/config"
)

// Decision is the outcome of an admission check. RetryAfter is only set when
// the admission was denied and reports the remaining window time.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Window describes one platform's fixed admission window.
type Window struct {
	Limit  int
	Length time.Duration
}

type counter struct {
	start time.Time
	count int
}

// Limiter applies fixed-window counters per platform. Platforms without a
// configured window are admitted unconditionally; rejecting unknown platforms
// is the publish stage's job, not the limiter's.
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]Window
	counters map[string]*counter
	now      func() time.Time
}

// New builds a limiter from the enabled platforms in the config.
func New(cfg *config.Config) *Limiter {
	windows := make(map[string]Window)
	for name, platform := range cfg.Platforms {
		if !platform.Enabled || platform.RateLimit <= 0 || platform.RateWindowSeconds <= 0 {
			continue
		}
		windows[name] = Window{
			Limit:  platform.RateLimit,
			Length: time.Duration(platform.RateWindowSeconds) * time.Second,
		}
	}
	return NewWithWindows(windows)
}

// NewWithWindows builds a limiter from explicit windows.
func NewWithWindows(windows map[string]Window) *Limiter {
	return &Limiter{
		windows:  windows,
		counters: make(map[string]*counter),
		now:      time.Now,
	}
}

// SetClock overrides the limiter's time source. Test hook.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	l.now = now
	l.mu.Unlock()
}

// Admit consumes one admission slot for the platform when the current window
// has capacity. A denial does not consume capacity.
func (l *Limiter) Admit(platform string) Decision {
	platform = strings.ToLower(strings.TrimSpace(platform))

	l.mu.Lock()
	defer l.mu.Unlock()

	window, ok := l.windows[platform]
	if !ok {
		return Decision{Allowed: true}
	}

	now := l.now()
	c := l.counters[platform]
	if c == nil || now.Sub(c.start) >= window.Length {
		c = &counter{start: now}
		l.counters[platform] = c
	}

	if c.count >= window.Limit {
		return Decision{
			Allowed:    false,
			RetryAfter: window.Length - now.Sub(c.start),
		}
	}
	c.count++
	return Decision{Allowed: true}
}

// WindowFor returns the configured window for a platform, if any.
func (l *Limiter) WindowFor(platform string) (Window, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	window, ok := l.windows[strings.ToLower(strings.TrimSpace(platform))]
	return window, ok
}
