package config

import "errors"

var (
	// ErrInvalidConfig wraps every validation failure.
	ErrInvalidConfig = errors.New("config: invalid configuration")

	// ErrInvalidEnv is returned when an override variable cannot be parsed.
	ErrInvalidEnv = errors.New("config: invalid environment override")
)
