package api

import (
	"bufio"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ray10k/raspberry-wifi-conf/internal/brand"
	"github.com/ray10k/raspberry-wifi-conf/internal/i18n"
	"github.com/ray10k/raspberry-wifi-conf/internal/wifi"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// requestID reuses a well-formed incoming X-Request-ID or assigns a new
// UUID, echoes it and attaches it to the context so it reaches the audit log.
func (s *Server) requestID(next http.Handler) http.Handler {
	server := brand.UserAgent(brand.Version)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		w.Header().Set("Server", server)
		next.ServeHTTP(w, r.WithContext(wifi.WithRequestID(r.Context(), id)))
	})
}

// accessLogWriter wraps http.ResponseWriter to capture the status code
type accessLogWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (rw *accessLogWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *accessLogWriter) Write(b []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(b)
	rw.size += size
	return size, err
}

// Hijack is needed for the websocket upgrade.
func (rw *accessLogWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	rw.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// accessLog logs every request and records request metrics by route
// pattern. /metrics itself is not logged.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &accessLogWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		duration := time.Since(start)

		// The mux sets Pattern on the request it was handed.
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		if s.metrics != nil {
			s.metrics.RecordAPIRequest(r.Method, route, rw.status, duration.Seconds())
		}
		if r.URL.Path == "/metrics" {
			return
		}

		log := s.logger.Info
		switch {
		case rw.status >= 500:
			log = s.logger.Error
		case rw.status >= 400:
			log = s.logger.Warn
		}
		log("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"size", rw.size,
			"duration", duration.Round(time.Millisecond),
			"client", clientIP(r, s.trustedProxies),
			"request_id", wifi.RequestID(r.Context()))
	})
}

// maxBody limits the size of request bodies.
func (s *Server) maxBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > maxBytes {
				WriteError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// limit rejects mode-changing requests from clients over their rate limit.
func (s *Server) limit(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientIP(r, s.trustedProxies)
		if !s.limiter.Allow(client) {
			secs := int(math.Ceil(s.limiter.RetryAfter(client).Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			WriteErrorCtx(w, r, http.StatusTooManyRequests, i18n.MsgRateLimited, secs)
			return
		}
		next(w, r)
	})
}
