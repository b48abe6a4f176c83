// Package health serves the liveness endpoint of both services.
package health

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// Check pings one dependency
type Check func(ctx context.Context) error

// Handler runs every check under a shared deadline
type Handler struct {
	service string
	checks  map[string]Check
	timeout time.Duration
}

func NewHandler(service string, timeout time.Duration, checks map[string]Check) *Handler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Handler{service: service, checks: checks, timeout: timeout}
}

// Serve answers 200 when all checks pass and 503 otherwise. Check errors are
// reduced to "down" so nothing internal leaks.
func (h *Handler) Serve(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(gin.H, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			results[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "up"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, gin.H{
		"status":  overall,
		"service": h.service,
		"checks":  results,
	})
}
