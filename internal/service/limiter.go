package service

import (
	"time"

	"golang.org/x/time/rate"
)

// NewPacer returns a limiter that lets one call through per delay
func NewPacer(delay time.Duration) Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}
