package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fulmenhq/gofulmen/errors"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/errors"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/metrics"
)

// Check states reported per checker.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusTimeout   = "timeout"
	StatusStarting  = "starting"
)

// Criticality decides how a failing check affects a probe.
type Criticality int

const (
	// Required checks fail readiness when they fail.
	Required Criticality = iota
	// Optional checks only degrade it. Prompt synthesis works without an
	// AI provider, so the provider check is optional.
	Optional
)

var probeTimeouts = map[string]time.Duration{
	"aggregate": 5 * time.Second,
	"ready":     5 * time.Second,
}

// maxConcurrentChecks bounds checker goroutines per probe.
const maxConcurrentChecks = 4

// HealthResponse is the aggregate /health body.
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ProbeResponse is the body of the live, ready and startup probes.
type ProbeResponse struct {
	Status    string    `json:"status"`
	Probe     string    `json:"probe"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthChecker is implemented by dependencies the server probes.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// CheckerFunc adapts a function to HealthChecker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) CheckHealth(ctx context.Context) error {
	return f(ctx)
}

type registeredCheck struct {
	name        string
	checker     HealthChecker
	criticality Criticality
}

// HealthManager runs registered checks for the health endpoints.
type HealthManager struct {
	mu      sync.RWMutex
	checks  []registeredCheck
	version string
	started atomic.Bool
}

func NewHealthManager(version string) *HealthManager {
	return &HealthManager{version: version}
}

// Register adds or replaces the checker called name.
func (hm *HealthManager) Register(name string, checker HealthChecker, criticality Criticality) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	for i, existing := range hm.checks {
		if existing.name == name {
			hm.checks[i] = registeredCheck{name: name, checker: checker, criticality: criticality}
			return
		}
	}
	hm.checks = append(hm.checks, registeredCheck{name: name, checker: checker, criticality: criticality})
}

// MarkStarted flips the startup probe once the studio is wired.
func (hm *HealthManager) MarkStarted() {
	hm.started.Store(true)
}

// run executes every check concurrently. A check still running when ctx
// ends is reported as timed out.
func (hm *HealthManager) run(ctx context.Context) map[string]string {
	hm.mu.RLock()
	checks := append([]registeredCheck(nil), hm.checks...)
	hm.mu.RUnlock()

	var (
		mu      sync.Mutex
		results = make(map[string]string, len(checks))
		g       errgroup.Group
	)
	g.SetLimit(maxConcurrentChecks)
	for _, check := range checks {
		g.Go(func() error {
			status := runCheck(ctx, check)
			mu.Lock()
			results[check.name] = status
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func runCheck(ctx context.Context, check registeredCheck) string {
	start := time.Now()
	done := make(chan error, 1)
	go func() { done <- check.checker.CheckHealth(ctx) }()

	select {
	case err := <-done:
		metrics.RecordHealthCheck(check.name, err == nil, time.Since(start))
		switch {
		case err == nil:
			return StatusHealthy
		case check.criticality == Optional:
			return StatusDegraded
		default:
			return StatusUnhealthy
		}
	case <-ctx.Done():
		metrics.RecordHealthCheck(check.name, false, time.Since(start))
		return StatusTimeout
	}
}

// overallStatus is unhealthy when any required check failed, and degraded
// when an optional check failed or any check timed out.
func overallStatus(checks map[string]string) string {
	status := StatusHealthy
	for _, result := range checks {
		switch result {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded, StatusTimeout:
			status = StatusDegraded
		}
	}
	return status
}

// HealthHandler serves the aggregate check with per-checker results.
func (hm *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	checks, status := hm.evaluate(r.Context(), "aggregate")
	if status == StatusUnhealthy {
		apperrors.RespondWithError(w, r, healthEnvelope("aggregate health check failed", "aggregate", status, checks))
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    status,
		Version:   hm.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}

// LivenessHandler only reports that the process serves requests; dependency
// failures must not get it restarted.
func (hm *HealthManager) LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	writeProbe(w, "live", StatusHealthy)
}

// ReadinessHandler fails while a required dependency is down.
func (hm *HealthManager) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	checks, status := hm.evaluate(r.Context(), "ready")
	if status == StatusUnhealthy {
		apperrors.RespondWithError(w, r, healthEnvelope("readiness probe failed", "ready", status, checks))
		return
	}
	writeProbe(w, "ready", status)
}

// StartupHandler fails until MarkStarted is called.
func (hm *HealthManager) StartupHandler(w http.ResponseWriter, r *http.Request) {
	if !hm.started.Load() {
		apperrors.RespondWithError(w, r, healthEnvelope("startup probe failed", "startup", StatusStarting, nil))
		return
	}
	writeProbe(w, "startup", StatusHealthy)
}

func (hm *HealthManager) evaluate(ctx context.Context, probe string) (map[string]string, string) {
	checkCtx, cancel := context.WithTimeout(ctx, probeTimeouts[probe])
	defer cancel()
	checks := hm.run(checkCtx)
	return checks, overallStatus(checks)
}

func writeProbe(w http.ResponseWriter, probe, status string) {
	writeJSON(w, http.StatusOK, ProbeResponse{
		Status:    status,
		Probe:     probe,
		Timestamp: time.Now().UTC(),
	})
}

func healthEnvelope(message, probe, status string, checks map[string]string) *errors.ErrorEnvelope {
	envelope := errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", message)

	details := map[string]interface{}{"status": status, "probe": probe}
	if len(checks) > 0 {
		details["checks"] = checks
	}
	envelope = envelope.WithDetails(details)

	contextData := map[string]interface{}{"status": status, "probe": probe}
	var failing []string
	for name, result := range checks {
		if result != StatusHealthy {
			failing = append(failing, name)
		}
	}
	if len(failing) > 0 {
		sort.Strings(failing)
		contextData["failing_checks"] = failing
	}
	envelope, _ = envelope.WithContext(contextData)
	return envelope
}

var globalHealthManager *HealthManager

// InitHealthManager replaces the manager behind the package-level handlers.
func InitHealthManager(version string) {
	globalHealthManager = NewHealthManager(version)
}

func GetHealthManager() *HealthManager {
	return globalHealthManager
}

func withGlobalManager(probe string, serve func(*HealthManager, http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hm := globalHealthManager; hm != nil {
			serve(hm, w, r)
			return
		}
		apperrors.RespondWithError(w, r, healthEnvelope("health manager not initialized", probe, "unknown", nil))
	}
}

// Package-level handlers serve the manager installed by InitHealthManager.
var (
	HealthHandler    = withGlobalManager("aggregate", (*HealthManager).HealthHandler)
	LivenessHandler  = withGlobalManager("live", (*HealthManager).LivenessHandler)
	ReadinessHandler = withGlobalManager("ready", (*HealthManager).ReadinessHandler)
	StartupHandler   = withGlobalManager("startup", (*HealthManager).StartupHandler)
)
