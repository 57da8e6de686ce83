package remotesync

import (
	"context"
	"sync"
	"time"
)

// Monitor answers "are we online right now" and lets interested parties hook
// the offline-to-online transition.
type Monitor interface {
	Online() bool
	OnOnline(fn func())
}

// ProbeMonitor decides connectivity by polling the remote root endpoint. A
// reachability flip from offline to online fires every registered callback
// once per transition.
type ProbeMonitor struct {
	client   *Client
	interval time.Duration

	mu     sync.Mutex
	online bool
	subs   []func()
}

func NewProbeMonitor(client *Client, interval time.Duration) *ProbeMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ProbeMonitor{client: client, interval: interval}
}

func (m *ProbeMonitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *ProbeMonitor) OnOnline(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

// Start probes once immediately, then on every tick until ctx is cancelled.
func (m *ProbeMonitor) Start(ctx context.Context) {
	go func() {
		m.probe(ctx)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.probe(ctx)
			}
		}
	}()
}

func (m *ProbeMonitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	m.setOnline(m.client.Ping(probeCtx))
}

func (m *ProbeMonitor) setOnline(online bool) {
	m.mu.Lock()
	wasOnline := m.online
	m.online = online
	var subs []func()
	if online && !wasOnline {
		subs = append(subs, m.subs...)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		go fn()
	}
}
