package config

import (
	"errors"
)

// Sentinel errors for config loading and validation, matchable via errors.Is.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
