package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks configuration values and returns an aggregate error
// describing every problem found.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		problems = append(problems, "paths.log_dir must be set")
	}
	if strings.TrimSpace(c.Paths.SocketPath) == "" {
		problems = append(problems, "paths.socket_path must be set")
	}

	if c.Pipeline.DailyHoldingCost < 0 {
		problems = append(problems, "pipeline.daily_holding_cost must not be negative")
	}
	if c.Pipeline.AgingThresholdDays <= 0 {
		problems = append(problems, "pipeline.aging_threshold_days must be positive")
	}
	if c.Pipeline.TransitionRetries < 1 {
		problems = append(problems, "pipeline.transition_retries must be at least 1")
	}

	if c.Notifications.RequestTimeout <= 0 {
		problems = append(problems, "notifications.request_timeout must be positive")
	}

	switch c.Logging.Format {
	case "auto", "json", "pretty":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not one of auto, json, pretty", c.Logging.Format))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid configuration: " + strings.Join(problems, "; "))
}
