package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/ray10k/raspberry-wifi-conf/internal/logging"
)

// ModeFunc probes the managed interface and returns its mode name.
type ModeFunc func(ctx context.Context) (string, error)

// Collector periodically probes the interface and updates the mode gauge.
type Collector struct {
	registry *Registry
	logger   *logging.Logger
	interval time.Duration
	probe    ModeFunc

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}

	mu         sync.RWMutex
	lastMode   string
	lastUpdate time.Time
}

// NewCollector creates a collector that calls probe every interval.
func NewCollector(registry *Registry, probe ModeFunc, interval time.Duration, logger *logging.Logger) *Collector {
	if logger == nil {
		logger = logging.Default()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Collector{
		registry: registry,
		logger:   logger.WithComponent("metrics"),
		interval: interval,
		probe:    probe,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins background collection. It collects once immediately.
func (c *Collector) Start() {
	go func() {
		defer close(c.doneCh)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		c.Collect(context.Background())
		for {
			select {
			case <-ticker.C:
				c.Collect(context.Background())
			case <-c.stopCh:
				return
			}
		}
	}()
}

// Stop halts collection and waits for the loop to exit.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	<-c.doneCh
}

// Collect probes once and updates the registry.
func (c *Collector) Collect(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.interval)
	defer cancel()

	mode, err := c.probe(ctx)
	if err != nil {
		c.registry.ProbeErrors.Inc()
		c.logger.Debug("mode probe failed", "error", err)
		return
	}
	c.registry.SetMode(mode)

	c.mu.Lock()
	c.lastMode = mode
	c.lastUpdate = time.Now()
	c.mu.Unlock()
}

// LastMode returns the most recently observed mode and when it was seen.
func (c *Collector) LastMode() (string, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastMode, c.lastUpdate
}
