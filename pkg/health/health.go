// Package health runs background liveness and readiness probes and serves
// their state over HTTP.
//
// Probes execute on a fixed interval in their own goroutines. State flips
// use consecutive-result thresholds so a single slow database ping does not
// bounce the service out of rotation: a probe must fail failThreshold times
// in a row to go unhealthy and pass passThreshold times to recover.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// CheckFunc probes one component. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

// Probe kinds.
const (
	kindLiveness  = "liveness"
	kindReadiness = "readiness"
)

const (
	defaultFailThreshold = 3
	defaultPassThreshold = 1
)

// probe is one registered check plus its current state.
type probe struct {
	name    string
	kind    string
	timeout time.Duration
	check   CheckFunc

	mu       sync.Mutex
	healthy  bool
	lastErr  error
	failures int
	passes   int
}

// observe folds one check result into the probe state.
func (p *probe) observe(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.lastErr = err
	if err != nil {
		p.passes = 0
		p.failures++
		if p.failures >= defaultFailThreshold {
			p.healthy = false
		}
		return
	}
	p.failures = 0
	p.passes++
	if p.passes >= defaultPassThreshold {
		p.healthy = true
	}
}

func (p *probe) state() (healthy bool, lastErr error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.healthy, p.lastErr
}

func (p *probe) runOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	p.observe(p.check(ctx))
}

// Health owns the registered probes and the manual readiness gate.
type Health struct {
	mu     sync.Mutex
	probes []*probe
	ready  bool
	cancel context.CancelFunc
}

// New creates a Health service. It starts not-ready; call SetReady(true)
// once initialization finishes.
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a probe deciding whether the process should be
// restarted (goroutine leaks, GC stalls).
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.add(name, kindLiveness, timeout, check)
}

// AddReadinessCheck registers a probe deciding whether the process should
// receive traffic (database reachable, cache warm).
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.add(name, kindReadiness, timeout, check)
}

func (h *Health) add(name, kind string, timeout time.Duration, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.probes = append(h.probes, &probe{
		name:    name,
		kind:    kind,
		timeout: timeout,
		check:   check,
		healthy: true, // optimistic until the first results arrive
	})
}

// Start launches one goroutine per registered probe, each firing immediately
// and then every interval until the context is cancelled or Stop is called.
// Register all probes before calling Start.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	probes := append([]*probe(nil), h.probes...)
	h.mu.Unlock()

	for _, p := range probes {
		go func(p *probe) {
			p.runOnce(ctx)
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					p.runOnce(ctx)
				}
			}
		}(p)
	}
}

// Stop cancels the probe goroutines. Safe to call repeatedly.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady flips the manual readiness gate. Flip it to false at the start of
// graceful shutdown so load balancers drain the instance.
func (h *Health) SetReady(ready bool) {
	h.mu.Lock()
	h.ready = ready
	h.mu.Unlock()
}

// IsReady reports whether the gate is open and every readiness probe passes.
func (h *Health) IsReady() bool {
	h.mu.Lock()
	ready := h.ready
	probes := append([]*probe(nil), h.probes...)
	h.mu.Unlock()

	if !ready {
		return false
	}
	for _, p := range probes {
		if p.kind != kindReadiness {
			continue
		}
		if healthy, _ := p.state(); !healthy {
			return false
		}
	}
	return true
}

func (h *Health) snapshot(kind string) []*probe {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*probe
	for _, p := range h.probes {
		if p.kind == kind {
			out = append(out, p)
		}
	}
	return out
}

// LiveEndpoint serves the liveness probe: 200 while all liveness checks
// pass, 503 with per-check failure messages otherwise.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeProbeState(w, failures(h.snapshot(kindLiveness)))
}

// ReadyEndpoint serves the readiness probe: 200 only when the service has
// been marked ready and every readiness check passes.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	fails := failures(h.snapshot(kindReadiness))

	h.mu.Lock()
	ready := h.ready
	h.mu.Unlock()
	if !ready {
		fails["_readiness"] = "service is not ready"
	}
	writeProbeState(w, fails)
}

func failures(probes []*probe) map[string]string {
	out := make(map[string]string)
	for _, p := range probes {
		healthy, lastErr := p.state()
		if healthy {
			continue
		}
		if lastErr != nil {
			out[p.name] = lastErr.Error()
		} else {
			out[p.name] = "check is unhealthy"
		}
	}
	return out
}

func writeProbeState(w http.ResponseWriter, fails map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	body := struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks,omitempty"`
	}{Status: "ok"}

	code := http.StatusOK
	if len(fails) > 0 {
		body.Status = "unhealthy"
		body.Checks = fails
		code = http.StatusServiceUnavailable
	}
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
