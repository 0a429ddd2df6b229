// Package env provides plain environment lookups for the few settings read
// before the envconfig-backed configuration is loaded.
package env

import "os"

// Get reads an environment variable, returning fallback when it is unset or
// empty.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
