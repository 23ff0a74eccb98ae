package metrics

import "fmt"

// ErrRegister returns an error for a metric family the registry rejected
func ErrRegister(err error) error {
	return fmt.Errorf("metrics: register collector: %w", err)
}
