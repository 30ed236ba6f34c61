// Package env reads process environment variables with fallbacks, for the
// few knobs resolved before envconfig parsing runs (log format selection).
package env

import "os"

// Get looks up key in the process environment, returning fallback when the
// variable is unset or empty.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
