package config

import (
	"fmt"
	"strings"
)

// ConfigError aggregates configuration problems found at startup.
type ConfigError struct {
	Missing []string // Required variables that are unset
	Errors  []string // Invalid values
}

func (e *ConfigError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing required configuration: %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Errors) > 0 {
		parts = append(parts, "invalid configuration:")
		for _, msg := range e.Errors {
			parts = append(parts, "  - "+msg)
		}
	}
	return strings.Join(parts, "\n")
}

func (e *ConfigError) HasErrors() bool {
	return len(e.Missing) > 0 || len(e.Errors) > 0
}
