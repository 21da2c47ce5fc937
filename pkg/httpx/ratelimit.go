package httpx

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/rollcall/pkg/slogx"
	"golang.org/x/time/rate"
)

// Limit is a token bucket: Requests tokens refill evenly over Per, and at
// most Burst may be spent at once.
type Limit struct {
	Requests int
	Per      time.Duration
	Burst    int
}

func (l Limit) rate() rate.Limit {
	return rate.Limit(float64(l.Requests) / l.Per.Seconds())
}

// refill is how long an untouched bucket takes to fill up again.
func (l Limit) refill() time.Duration {
	return time.Duration(float64(l.Per) * float64(l.Burst) / float64(l.Requests))
}

// Route profiles, all per minute.
var (
	// StrictLimit guards credential endpoints.
	StrictLimit = Limit{Requests: 5, Per: time.Minute, Burst: 5}
	// ModerateLimit guards authenticated writes.
	ModerateLimit = Limit{Requests: 20, Per: time.Minute, Burst: 20}
	// LenientLimit guards authenticated reads and health checks.
	LenientLimit = Limit{Requests: 100, Per: time.Minute, Burst: 100}
	// PublicLimit guards public key discovery.
	PublicLimit = Limit{Requests: 1000, Per: time.Minute, Burst: 1000}
)

// KeyFunc names the bucket a request draws from. An empty key bypasses the
// limiter.
type KeyFunc func(*http.Request) string

// ClientIP is the first X-Forwarded-For hop, then X-Real-IP, then the
// connection's remote host. Forwarding headers are trusted, so the service
// must sit behind a proxy that sets them.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// UserKey keys by the identity AccessGuard attached, or "" when there is
// none.
func UserKey(r *http.Request) string {
	if id, ok := IdentityFromContext(r.Context()); ok && id.Sub != "" {
		return "user:" + id.Sub
	}
	return ""
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// buckets holds one token bucket per key. A bucket idle for longer than its
// refill time is full again, so dropping it loses nothing.
type buckets struct {
	limit Limit
	now   func() time.Time

	mu        sync.Mutex
	byKey     map[string]*bucket
	lastSweep time.Time
}

func newBuckets(limit Limit, now func() time.Time) *buckets {
	return &buckets{
		limit:     limit,
		now:       now,
		byKey:     make(map[string]*bucket),
		lastSweep: now(),
	}
}

// take spends a token for key. When none is left it reports how long until
// the next one.
func (b *buckets) take(key string) (bool, time.Duration) {
	now := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()

	idle := max(b.limit.refill(), time.Minute)
	if now.Sub(b.lastSweep) >= idle {
		for k, bk := range b.byKey {
			if now.Sub(bk.lastSeen) >= idle {
				delete(b.byKey, k)
			}
		}
		b.lastSweep = now
	}

	bk, ok := b.byKey[key]
	if !ok {
		bk = &bucket{limiter: rate.NewLimiter(b.limit.rate(), b.limit.Burst)}
		b.byKey[key] = bk
	}
	bk.lastSeen = now

	res := bk.limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, b.limit.Per
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (b *buckets) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.byKey)
}

// RateLimit rejects requests with 429 once the bucket named by key is empty.
// Each call builds an independent set of buckets.
func RateLimit(limit Limit, key KeyFunc) Middleware {
	bs := newBuckets(limit, time.Now)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}

			ok, wait := bs.take(k)
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			retryAfter := max(int(math.Ceil(wait.Seconds())), 1)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.Requests))
			w.Header().Set("X-RateLimit-Window", limit.Per.String())

			slogx.FromContext(r.Context()).Warn("rate limit exceeded",
				"key", k,
				"path", r.URL.Path,
				"retry_after", retryAfter,
			)
			WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "too many requests, try again later")
		})
	}
}

// RateLimitByIP limits by client address.
func RateLimitByIP(limit Limit) Middleware {
	return RateLimit(limit, ClientIP)
}

// RateLimitByUser limits by authenticated user, falling back to the client
// address. It only sees the user when it runs after AccessGuard.
func RateLimitByUser(limit Limit) Middleware {
	return RateLimit(limit, func(r *http.Request) string {
		if k := UserKey(r); k != "" {
			return k
		}
		return "ip:" + ClientIP(r)
	})
}
