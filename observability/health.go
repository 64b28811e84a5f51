package observability

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sourcegraph/conc"
)

// HealthStatus represents the health status of the service
type HealthStatus struct {
	Status       string                      `json:"status"`
	Service      string                      `json:"service"`
	Timestamp    string                      `json:"timestamp"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus represents the status of a dependency
type DependencyStatus struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

// HealthCheckFunc reports whether one dependency is usable.
type HealthCheckFunc func(ctx context.Context) error

const readinessTimeout = 5 * time.Second

// HealthHandler answers liveness checks.
func HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthStatus{
			Status:    "healthy",
			Service:   "kennel-portal",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// ReadinessHandler runs every check concurrently and answers 503 if any fails.
func ReadinessHandler(checks map[string]HealthCheckFunc) gin.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		var (
			mu           sync.Mutex
			wg           conc.WaitGroup
			dependencies = make(map[string]DependencyStatus, len(checks))
		)
		for _, name := range names {
			check := checks[name]
			wg.Go(func() {
				start := time.Now()
				err := check(ctx)
				status := DependencyStatus{Status: "healthy", LatencyMs: time.Since(start).Milliseconds()}
				if err != nil {
					status.Status = "unhealthy"
					status.Message = err.Error()
				}
				mu.Lock()
				dependencies[name] = status
				mu.Unlock()
			})
		}
		wg.Wait()

		resp := HealthStatus{
			Status:       "ready",
			Service:      "kennel-portal",
			Timestamp:    time.Now().UTC().Format(time.RFC3339),
			Dependencies: dependencies,
		}
		code := http.StatusOK
		logger := FromContext(c.Request.Context())
		for name, dep := range dependencies {
			if dep.Status != "healthy" {
				resp.Status = "not_ready"
				code = http.StatusServiceUnavailable
				logger.Warn().Str("dependency", name).Str("error", dep.Message).Msg("readiness check failed")
			}
		}
		c.JSON(code, resp)
	}
}
