package dispatcher

import (
	"strconv"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
)

type RateLimitBucket struct {
	Remaining int
	Limit     int
	ResetAt   time.Time
}

// RateLimitMonitor tracks X-RateLimit headers per bucket key so requests
// that would certainly be rejected never leave the process.
type RateLimitMonitor struct {
	mu          sync.RWMutex
	buckets     map[string]*RateLimitBucket
	globalUntil time.Time
	now         func() time.Time
}

func NewRateLimitMonitor() *RateLimitMonitor {
	return &RateLimitMonitor{
		buckets: make(map[string]*RateLimitBucket),
		now:     time.Now,
	}
}

func (rlm *RateLimitMonitor) CanExecute(key string) bool {
	rlm.mu.RLock()
	bucket, exists := rlm.buckets[key]
	globalUntil := rlm.globalUntil
	rlm.mu.RUnlock()

	now := rlm.now()
	if now.Before(globalUntil) {
		return false
	}
	if !exists || now.After(bucket.ResetAt) {
		return true
	}
	return bucket.Remaining > 0
}

func (rlm *RateLimitMonitor) UpdateFromFastHTTPResponse(resp *fasthttp.Response, key string) {
	remaining := string(resp.Header.Peek("X-RateLimit-Remaining"))
	limit := string(resp.Header.Peek("X-RateLimit-Limit"))
	resetAfter := string(resp.Header.Peek("X-RateLimit-Reset-After"))
	reset := string(resp.Header.Peek("X-RateLimit-Reset"))
	retryAfter := string(resp.Header.Peek("Retry-After"))

	if remaining == "" && resetAfter == "" && reset == "" && retryAfter == "" {
		return
	}

	bucket := &RateLimitBucket{Remaining: 1}

	if remaining != "" {
		bucket.Remaining, _ = strconv.Atoi(remaining)
	}
	if limit != "" {
		bucket.Limit, _ = strconv.Atoi(limit)
	}

	// Reset values carry fractional seconds.
	switch {
	case resetAfter != "":
		if secs, err := strconv.ParseFloat(resetAfter, 64); err == nil {
			bucket.ResetAt = rlm.now().Add(time.Duration(secs * float64(time.Second)))
		}
	case reset != "":
		if secs, err := strconv.ParseFloat(reset, 64); err == nil {
			bucket.ResetAt = time.Unix(0, int64(secs*float64(time.Second)))
		}
	}

	var globalUntil time.Time
	if resp.StatusCode() == fasthttp.StatusTooManyRequests {
		bucket.Remaining = 0
		if secs, err := strconv.ParseFloat(retryAfter, 64); err == nil {
			bucket.ResetAt = rlm.now().Add(time.Duration(secs * float64(time.Second)))
		}
		// a global limit blocks every route, not just this bucket
		if string(resp.Header.Peek("X-RateLimit-Global")) == "true" {
			globalUntil = bucket.ResetAt
		}
	}

	rlm.mu.Lock()
	rlm.buckets[key] = bucket
	if globalUntil.After(rlm.globalUntil) {
		rlm.globalUntil = globalUntil
	}
	rlm.mu.Unlock()
}

func (rlm *RateLimitMonitor) GetBucket(key string) *RateLimitBucket {
	rlm.mu.RLock()
	defer rlm.mu.RUnlock()

	return rlm.buckets[key]
}
