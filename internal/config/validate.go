package config

import (
	"fmt"
	"log/slog"
	"strings"
)

const (
	minQueueCapacity = 1
	maxQueueCapacity = 1024
)

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

// ValidationResult splits problems into fatals (refuse to start) and
// warnings (value was corrected in place).
type ValidationResult struct {
	Fatals   []error
	Warnings []error
}

func (r ValidationResult) HasFatals() bool {
	return len(r.Fatals) > 0
}

// ValidateTiered checks the config. Out-of-range numeric values are clamped
// and reported as warnings; unknown enum-like strings are fatal.
func (c *Config) ValidateTiered() ValidationResult {
	var r ValidationResult

	if c.QueueCapacity < minQueueCapacity {
		r.Warnings = append(r.Warnings, fmt.Errorf("queue_capacity %d is below minimum %d, clamping", c.QueueCapacity, minQueueCapacity))
		c.QueueCapacity = minQueueCapacity
	} else if c.QueueCapacity > maxQueueCapacity {
		r.Warnings = append(r.Warnings, fmt.Errorf("queue_capacity %d exceeds maximum %d, clamping", c.QueueCapacity, maxQueueCapacity))
		c.QueueCapacity = maxQueueCapacity
	}

	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		r.Fatals = append(r.Fatals, fmt.Errorf("log_level %q is not valid (use debug, info, warn, error)", c.LogLevel))
	}

	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		r.Fatals = append(r.Fatals, fmt.Errorf("log_format %q is not valid (use text or json)", c.LogFormat))
	}

	if c.LogMaxSizeMB < 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("log_max_size_mb %d is below minimum 1, clamping", c.LogMaxSizeMB))
		c.LogMaxSizeMB = 1
	}
	if c.LogMaxBackups < 0 {
		r.Warnings = append(r.Warnings, fmt.Errorf("log_max_backups %d is negative, clamping", c.LogMaxBackups))
		c.LogMaxBackups = 0
	}

	if c.FenceBeforeMap && !c.CPUAccess {
		r.Warnings = append(r.Warnings, fmt.Errorf("fence_before_map has no effect without cpu_access"))
	}

	for _, err := range r.Warnings {
		slog.Warn("config validation", "error", err)
	}
	return r
}

// Validate returns every problem found, fatals first.
func (c *Config) Validate() []error {
	r := c.ValidateTiered()
	return append(r.Fatals, r.Warnings...)
}
