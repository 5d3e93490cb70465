package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

type HealthChecker struct {
	infra Infrastructure
}

func NewHealthChecker(infra Infrastructure) *HealthChecker {
	return &HealthChecker{
		infra: infra,
	}
}

// check pings every dependency concurrently and reports each result by name
func (h *HealthChecker) check(ctx context.Context) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	probes := map[string]func(context.Context) error{
		"postgres": h.infra.Postgres().Ping,
		"redis":    h.infra.Redis().Ping,
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		errs   []error
		checks = make(map[string]string, len(probes))
	)

	for name, probe := range probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := probe(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				checks[name] = "fail"
				errs = append(errs, err)
				return
			}
			checks[name] = "pass"
		}()
	}
	wg.Wait()

	return checks, errors.Join(errs...)
}

func (h *HealthChecker) Handler(c *gin.Context) {
	checks, err := h.check(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "fail",
			"checks": checks,
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "pass",
		"checks": checks,
	})
}
