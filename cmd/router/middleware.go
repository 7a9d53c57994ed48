package main

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Middleware wraps an http.Handler with cross-cutting behavior.
//
// Grounded on the teacher's cmd/agentflow/middleware.go Chain/Recovery/
// RequestLogger/APIKeyAuth shape.
type Middleware func(http.Handler) http.Handler

// Chain strings multiple middlewares together, applied in the given order.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// Recovery recovers panics from downstream handlers.
func Recovery(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered", zap.Any("error", err), zap.String("path", r.URL.Path))
					http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger logs method, path, status, and duration for every request.
func RequestLogger(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rw.statusCode),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Passphrase checks the X-Passphrase header against the configured shared
// secret (spec.md §6's execution passphrase), required on /execute and
// /workflows/* but not on /health or /metrics. An empty configured secret
// disables the check, matching the teacher's APIKeyAuth "no keys configured
// means skip" posture for local/dev deployments.
func Passphrase(secret string, logger *zap.Logger) Middleware {
	skip := map[string]bool{"/health": true, "/metrics": true}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" || skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			if r.Header.Get("X-Passphrase") != secret {
				logger.Warn("rejected request with invalid passphrase", zap.String("path", r.URL.Path), zap.String("remote_addr", r.RemoteAddr))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				fmt.Fprint(w, `{"error":"unauthorized","message":"invalid or missing passphrase"}`)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// JWTAuth validates a Bearer JWT on every request that reaches it (there
// are no per-path exemptions; /execute and /status are checked too),
// grounded on the teacher's cmd/agentflow/middleware.go JWTAuth. An empty
// secret disables the check, matching Passphrase's local/dev posture.
func JWTAuth(secret string, logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}
			tokenStr, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				writeUnauthorized(w, logger, r, "missing bearer token")
				return
			}
			token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				writeUnauthorized(w, logger, r, "invalid token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, logger *zap.Logger, r *http.Request, reason string) {
	logger.Warn("rejected request", zap.String("reason", reason), zap.String("path", r.URL.Path))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"error":"unauthorized","message":%q}`, reason)
}

// RateLimiter applies a per-IP token bucket, grounded on the teacher's
// cmd/agentflow/middleware.go RateLimiter, backed by
// golang.org/x/time/rate instead of the teacher's hand-rolled bucket.
func RateLimiter(rps, burst int, logger *zap.Logger) Middleware {
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	getLimiter := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		l, ok := limiters[ip]
		if !ok {
			l = rate.NewLimiter(rate.Limit(rps), burst)
			limiters[ip] = l
		}
		return l
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr
			if host, _, err := net.SplitHostPort(ip); err == nil {
				ip = host
			}
			if !getLimiter(ip).Allow() {
				logger.Warn("rate limit exceeded", zap.String("remote_addr", ip), zap.String("path", r.URL.Path))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprint(w, `{"error":"rate_limited","message":"too many requests"}`)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
