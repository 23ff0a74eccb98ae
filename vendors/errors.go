package vendors

import "fmt"

var (
	// ErrNotFound is returned when no vendor matches the lookup
	ErrNotFound = fmt.Errorf("vendors: not found")
)

// ErrQuery returns an error for a failed database operation
func ErrQuery(op string, err error) error {
	return fmt.Errorf("vendors: %s: %w", op, err)
}
