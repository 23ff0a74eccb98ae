package cache

import (
	"fmt"
	"time"
)

// Predefined errors
var (
	// ErrInvalidConfig is returned when the configuration is missing or inconsistent
	ErrInvalidConfig = fmt.Errorf("cache: invalid config")
	// ErrNilFetcher is returned by Get when no fetcher is supplied
	ErrNilFetcher = fmt.Errorf("cache: fetcher is nil")
)

// ErrInvalidKind returns an error for an unknown store kind
func ErrInvalidKind(kind string) error {
	return fmt.Errorf("cache: invalid kind: %q (must be %q or %q)", kind, KindMemory, KindLRU)
}

// ErrInvalidName returns an error for invalid name
func ErrInvalidName(name string) error {
	return fmt.Errorf("cache: invalid name: %q (must be non-empty)", name)
}

// ErrInvalidTTL returns an error for invalid default ttl
func ErrInvalidTTL(ttl time.Duration) error {
	return fmt.Errorf("cache: invalid default ttl: %v (must be > 0)", ttl)
}

// ErrInvalidMaxEntries returns an error for invalid max entries
func ErrInvalidMaxEntries(n int) error {
	return fmt.Errorf("cache: invalid max entries: %d (must be > 0)", n)
}

// ErrInvalidMaxBytes returns an error for invalid max bytes
func ErrInvalidMaxBytes(n int64) error {
	return fmt.Errorf("cache: invalid max bytes: %d (must be >= 0)", n)
}

// ErrUnexpectedType returns an error for a cached value of the wrong type
func ErrUnexpectedType(key string, want, got any) error {
	return fmt.Errorf("cache: value for key %q is %T, want %T", key, got, want)
}
