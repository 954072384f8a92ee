package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/ray10k/raspberry-wifi-conf/internal/i18n"
	"github.com/ray10k/raspberry-wifi-conf/internal/wifi"
)

// Values of the "status" field in every API response.
const (
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"
)

// clientIP returns the address access logs and rate limits are keyed on.
// X-Forwarded-For and X-Real-IP are only honoured when the direct peer is
// one of the trusted proxies; otherwise any client could pick its own key.
func clientIP(r *http.Request, trusted []netip.Prefix) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(peer); err == nil {
		peer = host
	}
	addr, err := netip.ParseAddr(peer)
	if err != nil || !isTrustedProxy(addr.Unmap(), trusted) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return ip.String()
		}
	}
	if ip, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return ip.String()
	}
	return peer
}

func isTrustedProxy(addr netip.Addr, trusted []netip.Prefix) bool {
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ParseTrustedProxies parses CIDR prefixes or bare addresses.
func ParseTrustedProxies(values []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(values))
	for _, v := range values {
		if addr, err := netip.ParseAddr(v); err == nil {
			out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		p, err := netip.ParsePrefix(v)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", v, err)
		}
		out = append(out, p.Masked())
	}
	return out, nil
}

// ErrorResponse represents a standard API error response
type ErrorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// WriteError sends a JSON error response
func WriteError(w http.ResponseWriter, code int, message string) {
	WriteJSON(w, code, ErrorResponse{Status: StatusError, Error: message})
}

// WriteErrorCtx sends a localized JSON error response
func WriteErrorCtx(w http.ResponseWriter, r *http.Request, code int, key string, args ...any) {
	WriteError(w, code, i18n.GetPrinter(r.Context()).Sprintf(key, args...))
}

// WriteJSON sends a JSON response
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// WriteSuccess sends fields with status SUCCESS added.
func WriteSuccess(w http.ResponseWriter, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["status"] = StatusSuccess
	WriteJSON(w, http.StatusOK, fields)
}

// writeOperationError maps err to a status code and writes it.
func writeOperationError(w http.ResponseWriter, err error, extra map[string]any) {
	body := map[string]any{"status": StatusError, "error": err.Error()}
	for k, v := range extra {
		body[k] = v
	}
	WriteJSON(w, statusFor(err), body)
}

// statusFor returns 400 for validation failures and 500 for everything else.
func statusFor(err error) int {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, wifi.ErrValidation),
		errors.As(err, &syntaxErr),
		errors.As(err, &typeErr):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// decodeJSON decodes the request body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}
