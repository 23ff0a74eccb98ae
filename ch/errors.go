package ch

import "fmt"

var (
	// ErrSinkClosed is returned when writing to a closed sink
	ErrSinkClosed = fmt.Errorf("ch: sink is closed")
)

// ErrInvalidConfig invalid config
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("ch: invalid config: %s", msg)
}

// ErrConnection ClickHouse connection error
func ErrConnection(err error) error {
	return fmt.Errorf("ch: connection failed: %w", err)
}

// ErrInsert insert error
func ErrInsert(table string, err error) error {
	return fmt.Errorf("ch: insert to table %s failed: %w", table, err)
}
