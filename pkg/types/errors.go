package types

import "errors"

// Sentinel errors for common error conditions.
var (
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig is returned when configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrProviderNotAvailable is returned when a provider is not available.
	ErrProviderNotAvailable = errors.New("provider not available")

	// ErrParseError is returned when parsing fails.
	ErrParseError = errors.New("parse error")

	// ErrUnsupportedLanguage is returned for files no frontend can parse.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrResolverFailed is returned when an external resolver cannot answer.
	ErrResolverFailed = errors.New("resolver failed")

	// ErrCacheFailed is returned when a findings cache operation fails.
	ErrCacheFailed = errors.New("cache operation failed")
)
