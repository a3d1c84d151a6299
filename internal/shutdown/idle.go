// Package shutdown provides idle monitoring for scale-to-zero deployments.
package shutdown

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// IdleMonitorConfig holds configuration for the idle monitor.
type IdleMonitorConfig struct {
	// Timeout with no requests before shutdown is signalled. 0 disables.
	Timeout time.Duration
	// CheckInterval defaults to Timeout/6, clamped to 5s..30s.
	CheckInterval time.Duration
	// ExcludePaths are path prefixes that do not count as activity.
	ExcludePaths []string
	Logger       *slog.Logger
}

// IdleMonitor closes ShutdownChan once the server has served no counted
// request for Timeout.
type IdleMonitor struct {
	timeout       time.Duration
	checkInterval time.Duration
	excludePaths  []string
	logger        *slog.Logger

	active       atomic.Int64
	lastActivity atomic.Int64 // unix nanos

	shutdownChan chan struct{}
	stopChan     chan struct{}
	stopOnce     sync.Once
}

// NewIdleMonitor creates a new idle monitor.
func NewIdleMonitor(cfg IdleMonitorConfig) *IdleMonitor {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	interval := cfg.CheckInterval
	if interval <= 0 {
		interval = min(max(cfg.Timeout/6, 5*time.Second), 30*time.Second)
	}
	m := &IdleMonitor{
		timeout:       cfg.Timeout,
		checkInterval: interval,
		excludePaths:  cfg.ExcludePaths,
		logger:        cfg.Logger,
		shutdownChan:  make(chan struct{}),
		stopChan:      make(chan struct{}),
	}
	m.touch()
	return m
}

// Enabled reports whether idle shutdown is configured.
func (m *IdleMonitor) Enabled() bool { return m.timeout > 0 }

// Start begins monitoring. It is a no-op when disabled.
func (m *IdleMonitor) Start() {
	if !m.Enabled() {
		return
	}
	m.logger.Info("idle monitoring started", "timeout", m.timeout, "exclude_paths", m.excludePaths)
	go m.run()
}

// Stop stops the monitor without signalling shutdown.
func (m *IdleMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
}

// ShutdownChan is closed when the idle timeout is reached.
func (m *IdleMonitor) ShutdownChan() <-chan struct{} {
	return m.shutdownChan
}

// Middleware tracks request activity, ignoring excluded paths.
func (m *IdleMonitor) Middleware(next http.Handler) http.Handler {
	if !m.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, p := range m.excludePaths {
			if strings.HasPrefix(r.URL.Path, p) {
				next.ServeHTTP(w, r)
				return
			}
		}

		m.active.Add(1)
		m.touch()
		defer func() {
			m.active.Add(-1)
			m.touch()
		}()
		next.ServeHTTP(w, r)
	})
}

func (m *IdleMonitor) touch() {
	m.lastActivity.Store(time.Now().UnixNano())
}

func (m *IdleMonitor) run() {
	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			if m.active.Load() > 0 {
				m.touch()
				continue
			}
			idle := time.Since(time.Unix(0, m.lastActivity.Load()))
			if idle >= m.timeout {
				m.logger.Info("idle timeout reached, signaling graceful shutdown",
					"idle_time", idle,
					"timeout", m.timeout,
				)
				close(m.shutdownChan)
				return
			}
		}
	}
}
