package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const day = 24 * time.Hour

// Duration extends time.Duration with a leading day component, e.g. "7d" or "1d12h"
type Duration struct {
	time.Duration
}

// EnvDecode implements envconfig.Decoder
func (d *Duration) EnvDecode(ctx context.Context, v string) error {
	if v == "" {
		return nil
	}

	var days time.Duration
	if idx := strings.IndexByte(v, 'd'); idx >= 0 {
		n, err := strconv.Atoi(v[:idx])
		if err != nil {
			return fmt.Errorf("invalid days value: %w", err)
		}
		days = time.Duration(n) * day
		v = v[idx+1:]
		if v == "" {
			d.Duration = days
			return nil
		}
	}

	rest, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	d.Duration = days + rest
	return nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	return d.EnvDecode(context.Background(), string(text))
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func (d Duration) String() string {
	return d.Duration.String()
}
