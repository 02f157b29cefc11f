package http

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/logs"
	"golang.org/x/time/rate"
)

// RateLimiter limits the number of requests per second of each client,
// identified by IP address.
type RateLimiter struct {
	// The sustained number of requests per second. Zero disables limiting.
	RequestsPerSecond float64

	// The number of requests a client can make at once.
	Burst int

	// Whether to trust the X-Forwarded-For and X-Real-IP headers.
	TrustProxy bool

	mutex   sync.Mutex
	clients map[string]*rate.Limiter
}

// Handler wraps h with the rate limit.
func (l *RateLimiter) Handler(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.RequestsPerSecond <= 0 {
			h.ServeHTTP(w, r)
			return
		}

		ip := clientIP(r, l.TrustProxy)
		if !l.limiter(ip).Allow() {
			logs.WithTag("client_ip", ip).
				WithTag("path", r.URL.Path).
				WithTag("requests_per_second", l.RequestsPerSecond).
				Debug("rate limit exceeded")

			w.Header().Set("Retry-After", "1")
			WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		h.ServeHTTP(w, r)
	})
}

// Run removes idle clients every interval until ctx is done.
func (l *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case now := <-ticker.C:
			l.cleanup(now)
		}
	}
}

func (l *RateLimiter) limiter(ip string) *rate.Limiter {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.clients == nil {
		l.clients = make(map[string]*rate.Limiter)
	}

	limiter, ok := l.clients[ip]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(l.RequestsPerSecond), l.Burst)
		l.clients[ip] = limiter
	}
	return limiter
}

// cleanup removes the clients whose bucket is full again.
func (l *RateLimiter) cleanup(now time.Time) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	for ip, limiter := range l.clients {
		if limiter.TokensAt(now) >= float64(l.Burst) {
			delete(l.clients, ip)
		}
	}
}

func (l *RateLimiter) clientCount() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return len(l.clients)
}

func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			ip, _, _ := strings.Cut(forwarded, ",")
			return strings.TrimSpace(ip)
		}
		if ip := r.Header.Get("X-Real-IP"); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
