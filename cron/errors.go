package cron

import "fmt"

var (
	// ErrNilTask is returned when adding a nil task
	ErrNilTask = fmt.Errorf("cron: task is nil")
)

// ErrInvalidSpec returns an error for a spec the parser rejected
func ErrInvalidSpec(spec string, err error) error {
	return fmt.Errorf("cron: invalid spec %q: %w", spec, err)
}

// ErrPanic returns an error for a task that panicked
func ErrPanic(task string, recovered any) error {
	return fmt.Errorf("cron: task %s panicked: %v", task, recovered)
}
