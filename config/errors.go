package config

import "fmt"

// ErrReadFile represents an error reading the config file
func ErrReadFile(path string, err error) error {
	return fmt.Errorf("config: failed to read %s: %w", path, err)
}

// ErrParse represents an error decoding the YAML document
func ErrParse(err error) error {
	return fmt.Errorf("config: failed to parse yaml: %w", err)
}

// ErrLoadEnv represents an error loading the env file
func ErrLoadEnv(path string, err error) error {
	return fmt.Errorf("config: failed to load env file %s: %w", path, err)
}

// ErrInvalidEnv represents an environment override that cannot be parsed
func ErrInvalidEnv(name, value string, err error) error {
	return fmt.Errorf("config: invalid %s=%q: %w", name, value, err)
}

// ErrInvalidSection wraps the validation error of one config section
func ErrInvalidSection(section string, err error) error {
	return fmt.Errorf("config: invalid %s section: %w", section, err)
}

// ErrInvalidConfig invalid config
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("config: invalid config: %s", msg)
}
