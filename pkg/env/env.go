package env

import (
	"os"
	"strings"
)

// Prefix namespaces every variable the service reads.
const Prefix = "GIGESCROW_"

// Get returns the prefixed variable, then the bare one, then fallback. Bare
// names cover platform conventions such as LOG_FORMAT or PORT.
func Get(key, fallback string) string {
	key = strings.TrimPrefix(key, Prefix)
	if val := strings.TrimSpace(os.Getenv(Prefix + key)); val != "" {
		return val
	}
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}
