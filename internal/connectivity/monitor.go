// Package connectivity tracks backend reachability. The engine treats the
// monitor as a gate: every sync entry point checks IsConnected first and
// fails fast when offline.
package connectivity

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avoskresensky/fieldsync/internal/logging"
	"github.com/avoskresensky/fieldsync/internal/remote"
)

// Monitor reports whether the backend is reachable and notifies listeners
// on changes.
type Monitor interface {
	IsConnected() bool
	// OnChange registers a callback invoked whenever reachability flips.
	// Callbacks run on the monitor goroutine and must not block.
	OnChange(fn func(connected bool))
}

// PingMonitor probes the backend health endpoint on a fixed interval.
type PingMonitor struct {
	pinger   remote.Pinger
	interval time.Duration
	log      logging.Logger

	connected atomic.Bool

	mu        sync.Mutex
	listeners []func(bool)

	stop chan struct{}
	done chan struct{}
}

func NewPingMonitor(pinger remote.Pinger, interval time.Duration, log logging.Logger) *PingMonitor {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &PingMonitor{
		pinger:   pinger,
		interval: interval,
		log:      log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start probes once immediately, then keeps probing until Stop is called.
func (m *PingMonitor) Start(ctx context.Context) {
	go func() {
		defer close(m.done)
		m.probe(ctx)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.probe(ctx)
			}
		}
	}()
}

func (m *PingMonitor) Stop() {
	close(m.stop)
	<-m.done
}

func (m *PingMonitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()

	connected := m.pinger.Ping(probeCtx) == nil
	if m.connected.Swap(connected) == connected {
		return
	}

	m.log.Info(ctx, "connectivity changed", "connected", connected)
	m.mu.Lock()
	listeners := make([]func(bool), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(connected)
	}
}

// ProbeNow runs one synchronous probe. One-shot callers use it to settle
// reachability before their first sync attempt instead of waiting for the
// ticker.
func (m *PingMonitor) ProbeNow(ctx context.Context) bool {
	m.probe(ctx)
	return m.connected.Load()
}

func (m *PingMonitor) IsConnected() bool {
	return m.connected.Load()
}

func (m *PingMonitor) OnChange(fn func(connected bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Static is a fixed-state monitor for tests and for callers that manage
// reachability themselves.
type Static bool

func (s Static) IsConnected() bool             { return bool(s) }
func (s Static) OnChange(func(connected bool)) {}
