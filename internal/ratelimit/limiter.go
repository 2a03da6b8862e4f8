// Package ratelimit admits or rejects requests per client identity on a
// fixed one-minute window, counting against the shared store when it is
// reachable and an in-process window when it is not.
package ratelimit

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/i474232898/solar-forecast-service/internal/store"
)

// counterPrefix namespaces rate-limit counters away from cache entries.
const counterPrefix = "solarcast:rl:"

const window = time.Minute

// Verdict is the explicit three-way outcome of a store-backed check.
type Verdict int

const (
	Allowed Verdict = iota
	Denied
	StoreUnavailable
)

// Decision is the result of an admission check. RetryAfter is the time
// remaining in the current window, meaningful when the verdict is Denied.
type Decision struct {
	Verdict    Verdict
	RetryAfter time.Duration
}

// Limiter counts requests per client identity per one-minute epoch. The
// shared store gives an accurate cross-process count; when it is down the
// limiter degrades to an approximate per-process window.
type Limiter struct {
	kv    store.KV
	limit int64

	mu          sync.Mutex
	localEpoch  int64
	localCounts map[string]int64

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

// New creates a Limiter admitting at most limit requests per identity per
// minute. limit values below 1 are raised to 1.
func New(kv store.KV, limit int) *Limiter {
	if limit < 1 {
		limit = 1
	}
	return &Limiter{
		kv:          kv,
		limit:       int64(limit),
		localCounts: make(map[string]int64),
		now:         time.Now,
	}
}

// WithNow overrides the limiter's clock. Intended for tests.
func (l *Limiter) WithNow(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Limit returns the configured per-minute admission limit.
func (l *Limiter) Limit() int64 { return l.limit }

// Check counts this request against identity's window and decides whether
// to admit it. Store failures route to the local fallback window; the
// request path never sees them.
func (l *Limiter) Check(ctx context.Context, identity string) Decision {
	decision := l.checkStore(ctx, identity)
	if decision.Verdict == StoreUnavailable {
		return l.checkLocal(identity)
	}
	return decision
}

func (l *Limiter) checkStore(ctx context.Context, identity string) Decision {
	count, remaining, err := l.kv.IncrWindow(ctx, counterPrefix+identity, window)
	if err != nil {
		if !errors.Is(err, store.ErrUnavailable) {
			log.Printf("ratelimit: counter increment failed: %v", err)
		}
		return Decision{Verdict: StoreUnavailable}
	}
	if count > l.limit {
		return Decision{Verdict: Denied, RetryAfter: remaining}
	}
	return Decision{Verdict: Allowed}
}

// checkLocal is the in-process fixed window: counts reset whenever the
// current minute epoch changes. Approximate under multiple processes.
func (l *Limiter) checkLocal(identity string) Decision {
	now := l.now()
	epoch := now.Unix() / 60

	l.mu.Lock()
	defer l.mu.Unlock()

	if epoch != l.localEpoch {
		l.localEpoch = epoch
		l.localCounts = make(map[string]int64)
	}
	l.localCounts[identity]++

	if l.localCounts[identity] > l.limit {
		remaining := time.Duration(60-now.Unix()%60) * time.Second
		return Decision{Verdict: Denied, RetryAfter: remaining}
	}
	return Decision{Verdict: Allowed}
}

// ClientIdentity resolves the identity a request is counted under: the
// first hop of the forwarded-for header when present, else the transport
// peer address, else a shared "unknown" bucket.
func ClientIdentity(forwardedFor, peerAddr string) string {
	if forwardedFor != "" {
		first := strings.TrimSpace(strings.Split(forwardedFor, ",")[0])
		if first != "" {
			return first
		}
	}
	if peerAddr != "" {
		return peerAddr
	}
	return "unknown"
}
