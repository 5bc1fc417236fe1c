package server

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/juju/ratelimit"
	"github.com/rs/zerolog/log"
)

// RequestLogger is a middleware to log HTTP requests.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(ww, r)

		event := log.Info()
		if ww.statusCode >= 500 {
			event = log.Error()
		} else if ww.statusCode >= 400 {
			event = log.Warn()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("query_len", len(r.URL.RawQuery)).
			Int("status", ww.statusCode).
			Int("bytes", ww.written).
			Str("ip", clientIP(r)).
			Dur("duration", time.Since(start)).
			Msg("Request processed")
	})
}

type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
	written    int
}

// WriteHeader captures the status code before writing to the underlying response writer.
func (w *responseWriterWrapper) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriterWrapper) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.written += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *responseWriterWrapper) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Recover turns handler panics into a 500 APIError.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Error().
					Str("path", r.URL.Path).
					Str("panic", fmt.Sprint(rec)).
					Msg("Panic recovered")
				writeError(w, ErrInternal)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// LimitQuery rejects requests whose raw query is longer than limit bytes.
func LimitQuery(limit int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit > 0 && len(r.URL.RawQuery) > limit {
				writeError(w, ErrQueryTooLong)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// maxClients bounds the bucket table.
const maxClients = 10000

// RateLimiter hands every client IP its own token bucket. When the table is
// full, refilled buckets are dropped; if none are, new clients share one
// overflow bucket so throttled clients keep their state.
type RateLimiter struct {
	buckets  map[string]*ratelimit.Bucket
	overflow *ratelimit.Bucket
	rate     float64
	burst    int64
	limit    int
	mu       sync.Mutex
}

// NewRateLimiter allows rate requests per second with bursts of burst.
func NewRateLimiter(rate float64, burst int64) *RateLimiter {
	return &RateLimiter{
		buckets:  make(map[string]*ratelimit.Bucket),
		overflow: ratelimit.NewBucketWithRate(rate, burst),
		rate:     rate,
		burst:    burst,
		limit:    maxClients,
	}
}

// Allow takes one token from the client's bucket.
func (l *RateLimiter) Allow(client string) bool {
	l.mu.Lock()
	b, ok := l.buckets[client]
	if !ok {
		if len(l.buckets) >= l.limit {
			l.pruneLocked()
		}
		if len(l.buckets) < l.limit {
			b = ratelimit.NewBucketWithRate(l.rate, l.burst)
			l.buckets[client] = b
		} else {
			b = l.overflow
		}
	}
	l.mu.Unlock()

	return b.TakeAvailable(1) == 1
}

// pruneLocked drops buckets that have refilled completely. Forgetting them
// changes nothing, a new bucket starts full as well.
func (l *RateLimiter) pruneLocked() {
	for client, b := range l.buckets {
		if b.Available() >= b.Capacity() {
			delete(l.buckets, client)
		}
	}
}

// Middleware answers 429 once a client runs out of tokens.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !l.Allow(ip) {
			log.Debug().Str("ip", ip).Str("path", r.URL.Path).Msg("Rate limited")
			w.Header().Set("Retry-After", "1")
			writeError(w, ErrTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from RemoteAddr. Behind a PROXY protocol
// listener RemoteAddr already holds the original client.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
