// Package health serves the /livez and /readyz probes of the API server.
//
// Checks run in the background, each on its own ticker, and probes only read
// their last outcome. A check is reported failing after three consecutive
// errors and passing again after the next success.
package health

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
)

// CheckFunc returns nil when the checked dependency is healthy.
type CheckFunc func(ctx context.Context) error

// Kind selects the probe a check gates.
type Kind int

const (
	// Liveness checks gate /livez. A failing liveness check gets the
	// process restarted, so only process-local conditions belong here.
	Liveness Kind = iota
	// Readiness checks gate /readyz, typically dependency pings.
	Readiness
)

// Check is a named periodic health check.
type Check struct {
	Name    string
	Kind    Kind
	Timeout time.Duration
	Func    CheckFunc
}

const failuresToTrip = 3

type state struct {
	Check

	passing atomic.Bool
	lastErr atomic.Pointer[string]
	fails   int // owned by the check goroutine
}

func (s *state) run(ctx context.Context) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	if err := s.Func(ctx); err != nil {
		msg := err.Error()
		s.lastErr.Store(&msg)
		if s.fails++; s.fails >= failuresToTrip {
			s.passing.Store(false)
		}
		return
	}
	s.fails = 0
	s.lastErr.Store(nil)
	s.passing.Store(true)
}

// report is "ok" or the last error of a failing check.
func (s *state) report() (string, bool) {
	if s.passing.Load() {
		return "ok", true
	}
	if msg := s.lastErr.Load(); msg != nil {
		return *msg, false
	}
	return "failing", false
}

// Health holds probe state. It reports not ready until SetReady(true).
type Health struct {
	ready  atomic.Bool
	checks []*state

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New registers checks. Checks pass until they have failed enough times.
func New(checks ...Check) *Health {
	h := &Health{}
	for _, c := range checks {
		s := &state{Check: c}
		s.passing.Store(true)
		h.checks = append(h.checks, s)
	}
	return h
}

// Start runs every check immediately and then once per interval until Stop
// is called or ctx is done.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	h.cancel = cancel
	h.mu.Unlock()

	for _, s := range h.checks {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				s.run(ctx)
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
			}
		}()
	}
}

// Stop cancels the check goroutines. Safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady marks the server as accepting traffic, or draining on shutdown.
func (h *Health) SetReady(ready bool) { h.ready.Store(ready) }

// IsReady reports whether the server is marked ready and every readiness
// check passes.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}
	for _, s := range h.checks {
		if _, ok := s.report(); s.Kind == Readiness && !ok {
			return false
		}
	}
	return true
}

// LiveEndpoint serves /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.write(w, Liveness, true)
}

// ReadyEndpoint serves /readyz.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.write(w, Readiness, h.ready.Load())
}

// write renders {"status":"ok"|"unavailable","checks":{name: "ok"|error}}.
// Checks are listed in name order.
func (h *Health) write(w http.ResponseWriter, kind Kind, ready bool) {
	var selected []*state
	for _, s := range h.checks {
		if s.Kind == kind {
			selected = append(selected, s)
		}
	}
	slices.SortFunc(selected, func(a, b *state) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})

	healthy := ready
	var checks jx.Encoder
	checks.ObjStart()
	if !ready {
		checks.FieldStart("server")
		checks.Str("draining")
	}
	for _, s := range selected {
		msg, ok := s.report()
		healthy = healthy && ok
		checks.FieldStart(s.Name)
		checks.Str(msg)
	}
	checks.ObjEnd()

	status, text := http.StatusOK, "ok"
	if !healthy {
		status, text = http.StatusServiceUnavailable, "unavailable"
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("status")
	e.Str(text)
	e.FieldStart("checks")
	e.Raw(checks.Bytes())
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
