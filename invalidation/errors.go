package invalidation

import "fmt"

var (
	// ErrInvalidConfig is returned when the configuration is missing or inconsistent
	ErrInvalidConfig = fmt.Errorf("invalidation: invalid config")
)

// ErrInvalidEvent returns an error for an event that cannot be applied
func ErrInvalidEvent(msg string) error {
	return fmt.Errorf("invalidation: invalid event: %s", msg)
}

// ErrEncode returns an error for an event that cannot be serialized
func ErrEncode(err error) error {
	return fmt.Errorf("invalidation: encode event: %w", err)
}

// ErrDecode returns an error for a payload that is not an event
func ErrDecode(err error) error {
	return fmt.Errorf("invalidation: decode event: %w", err)
}

// ErrPublish returns an error for an event the bus did not accept
func ErrPublish(kind Kind, err error) error {
	return fmt.Errorf("invalidation: publish %s event: %w", kind, err)
}
