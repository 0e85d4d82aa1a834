package engine

import (
	"context"
	"strings"
	"sync"
	"time"
)

// OperationImages is the limited operation for image generation. Keys are
// "<operation>:<owner>".
const OperationImages = "images"

// DefaultImagesPerMinute applies when a limiter has no limit for images.
const DefaultImagesPerMinute = 10

// fallbackLimit covers operations with no configured limit.
var fallbackLimit = RateLimit{RequestsPerWindow: 30, WindowDuration: time.Minute}

// RateLimit is a fixed request window.
type RateLimit struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// WindowState is the persisted counter for one key.
type WindowState struct {
	Count        int
	WindowStart  time.Time
	BackoffUntil time.Time
}

// RateLimitStore applies fn to a key's state atomically. fn receives the
// zero state for unseen keys.
type RateLimitStore interface {
	UpdateWindow(ctx context.Context, key string, fn func(*WindowState)) error
}

// RateLimiter enforces fixed per-owner windows. Take reserves a slot
// atomically, so concurrent requests cannot overshoot the window. A nil
// limiter, or one without a Store, allows everything.
type RateLimiter struct {
	Store  RateLimitStore
	Limits map[string]RateLimit
	Clock  func() time.Time
}

// Key builds the rate limit key for an owner's operation.
func Key(operation, ownerID string) string {
	return operation + ":" + strings.TrimSpace(ownerID)
}

// Reservation identifies a slot granted by Reserve.
type Reservation struct {
	Key         string
	WindowStart time.Time
}

// Take reserves one request for key. It returns 0 when the request may
// proceed, or how long the caller should wait.
func (r *RateLimiter) Take(ctx context.Context, key string) (time.Duration, error) {
	_, wait, err := r.Reserve(ctx, key)
	return wait, err
}

// Reserve is Take, also returning the granted slot so it can be refunded.
// The reservation is zero when no slot was granted.
func (r *RateLimiter) Reserve(ctx context.Context, key string) (Reservation, time.Duration, error) {
	if r == nil || r.Store == nil {
		return Reservation{}, 0, nil
	}
	limit := r.limitFor(key)
	now := r.now()

	var (
		wait    time.Duration
		granted Reservation
	)
	err := r.Store.UpdateWindow(ctx, key, func(st *WindowState) {
		if now.Before(st.BackoffUntil) {
			wait = st.BackoffUntil.Sub(now)
			return
		}
		windowEnd := st.WindowStart.Add(limit.WindowDuration)
		if st.WindowStart.IsZero() || !now.Before(windowEnd) {
			st.Count, st.WindowStart = 0, now
			windowEnd = now.Add(limit.WindowDuration)
		}
		if st.Count >= limit.RequestsPerWindow {
			wait = windowEnd.Sub(now)
			return
		}
		st.Count++
		granted = Reservation{Key: key, WindowStart: st.WindowStart}
	})
	if err != nil {
		return Reservation{}, 0, err
	}
	return granted, wait, nil
}

// Refund returns a slot granted by Reserve, for requests that failed before
// reaching the provider's quota. Slots from a window that has since rolled
// over are not refunded.
func (r *RateLimiter) Refund(ctx context.Context, res Reservation) error {
	if r == nil || r.Store == nil || res.WindowStart.IsZero() {
		return nil
	}
	return r.Store.UpdateWindow(ctx, res.Key, func(st *WindowState) {
		if st.Count > 0 && st.WindowStart.Equal(res.WindowStart) {
			st.Count--
		}
	})
}

// Backoff blocks key for d, after the provider answered 429.
func (r *RateLimiter) Backoff(ctx context.Context, key string, d time.Duration) error {
	if r == nil || r.Store == nil || d <= 0 {
		return nil
	}
	until := r.now().Add(d)
	return r.Store.UpdateWindow(ctx, key, func(st *WindowState) {
		if until.After(st.BackoffUntil) {
			st.BackoffUntil = until
		}
	})
}

// ApplyOverrides sets per-minute limits for operations. Blank operations
// and non-positive values are ignored.
func (r *RateLimiter) ApplyOverrides(perMinute map[string]int) {
	if r == nil {
		return
	}
	for operation, n := range perMinute {
		operation = strings.TrimSpace(operation)
		if operation == "" || n <= 0 {
			continue
		}
		if r.Limits == nil {
			r.Limits = map[string]RateLimit{}
		}
		r.Limits[operation] = RateLimit{RequestsPerWindow: n, WindowDuration: time.Minute}
	}
}

func (r *RateLimiter) limitFor(key string) RateLimit {
	operation, _, _ := strings.Cut(key, ":")
	if limit, ok := r.Limits[operation]; ok {
		return limit
	}
	if operation == OperationImages {
		return RateLimit{RequestsPerWindow: DefaultImagesPerMinute, WindowDuration: time.Minute}
	}
	return fallbackLimit
}

func (r *RateLimiter) now() time.Time {
	if r.Clock != nil {
		return r.Clock()
	}
	return time.Now().UTC()
}

// MemoryRateLimitStore keeps windows in process memory.
type MemoryRateLimitStore struct {
	mu      sync.Mutex
	windows map[string]*WindowState
}

func (m *MemoryRateLimitStore) UpdateWindow(_ context.Context, key string, fn func(*WindowState)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.windows == nil {
		m.windows = map[string]*WindowState{}
	}
	st, ok := m.windows[key]
	if !ok {
		st = &WindowState{}
		m.windows[key] = st
	}
	fn(st)
	return nil
}
