package db

import "fmt"

var (
	// ErrConnectionNotEstablished is returned by DB after Close
	ErrConnectionNotEstablished = fmt.Errorf("db: database connection not established")
)

// ErrInvalidConfig invalid config
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("db: invalid config: %s", msg)
}

// ErrConnection database connection error
func ErrConnection(err error) error {
	return fmt.Errorf("db: connection failed: %w", err)
}

// ErrRegisterMetrics pool metrics registration error
func ErrRegisterMetrics(database string, err error) error {
	return fmt.Errorf("db: failed to register pool metrics for %s: %w", database, err)
}
