package logging

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
)

// AppLogEntry represents an application log entry
type AppLogEntry struct {
	Timestamp time.Time         `json:"timestamp"`
	Level     string            `json:"level"`  // "debug", "info", "warn", "error"
	Source    string            `json:"source"` // component: "wifi", "api", "supplicant", ...
	Message   string            `json:"message"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// RingBuffer is a thread-safe circular buffer for log entries
type RingBuffer struct {
	entries []AppLogEntry
	size    int
	head    int
	count   int
	seq     uint64 // entries ever added
	mu      sync.RWMutex
}

// NewRingBuffer creates a new ring buffer with the given capacity
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{
		entries: make([]AppLogEntry, size),
		size:    size,
	}
}

// Add adds an entry to the ring buffer
func (rb *RingBuffer) Add(entry AppLogEntry) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.entries[rb.head] = entry
	rb.head = (rb.head + 1) % rb.size
	rb.seq++
	if rb.count < rb.size {
		rb.count++
	}
}

// Since returns the entries added after cursor, oldest first, and the cursor
// to pass next time. Entries already overwritten are skipped.
func (rb *RingBuffer) Since(cursor uint64) ([]AppLogEntry, uint64) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if cursor >= rb.seq {
		return nil, rb.seq
	}
	n := rb.seq - cursor
	if n > uint64(rb.count) {
		n = uint64(rb.count)
	}
	result := make([]AppLogEntry, n)
	start := (rb.head - int(n) + rb.size) % rb.size
	for i := range result {
		result[i] = rb.entries[(start+i)%rb.size]
	}
	return result, rb.seq
}

// GetLast returns the last n entries in chronological order
func (rb *RingBuffer) GetLast(n int) []AppLogEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if n > rb.count {
		n = rb.count
	}
	if n <= 0 {
		return []AppLogEntry{}
	}

	result := make([]AppLogEntry, n)
	start := (rb.head - n + rb.size) % rb.size
	for i := 0; i < n; i++ {
		result[i] = rb.entries[(start+i)%rb.size]
	}
	return result
}

// GetBySource returns entries filtered by source
func (rb *RingBuffer) GetBySource(source string, limit int) []AppLogEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	var result []AppLogEntry

	start := 0
	if rb.count == rb.size {
		start = rb.head
	}

	for i := 0; i < rb.count; i++ {
		e := rb.entries[(start+i)%rb.size]
		if e.Source == source {
			result = append(result, e)
			if limit > 0 && len(result) >= limit {
				break
			}
		}
	}
	return result
}

var (
	appLogBuffer *RingBuffer
	bufferOnce   sync.Once
)

// GetAppLogBuffer returns the global application log buffer
func GetAppLogBuffer() *RingBuffer {
	bufferOnce.Do(func() {
		appLogBuffer = NewRingBuffer(1000)
	})
	return appLogBuffer
}

// LevelFromSlog converts slog.Level to string
func LevelFromSlog(level slog.Level) string {
	switch {
	case level <= slog.LevelDebug:
		return "debug"
	case level <= slog.LevelInfo:
		return "info"
	case level <= slog.LevelWarn:
		return "warn"
	default:
		return "error"
	}
}

// bufferHandler copies each record into a RingBuffer before passing it on.
// The component attribute becomes the entry's Source.
type bufferHandler struct {
	next  slog.Handler
	buf   *RingBuffer
	attrs []slog.Attr
}

func (h *bufferHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *bufferHandler) Handle(ctx context.Context, r slog.Record) error {
	entry := AppLogEntry{
		Timestamp: r.Time,
		Level:     LevelFromSlog(r.Level),
		Source:    "system",
		Message:   r.Message,
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	collect := func(a slog.Attr) bool {
		if a.Key == "component" {
			entry.Source = strings.ToLower(a.Value.String())
			return true
		}
		if entry.Extra == nil {
			entry.Extra = make(map[string]string)
		}
		entry.Extra[a.Key] = a.Value.String()
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(collect)

	h.buf.Add(entry)
	return h.next.Handle(ctx, r)
}

func (h *bufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &bufferHandler{
		next:  h.next.WithAttrs(attrs),
		buf:   h.buf,
		attrs: append(slices.Clip(h.attrs), attrs...),
	}
}

func (h *bufferHandler) WithGroup(name string) slog.Handler {
	return &bufferHandler{next: h.next.WithGroup(name), buf: h.buf, attrs: h.attrs}
}
