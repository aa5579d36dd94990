// Package kberrors provides structured error handling for kbsearch.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors (bad credentials, missing required config)
//   - 3XX: Transient errors (timeout, throttling, transient network)
//   - 4XX: Validation errors (malformed request parameters)
//   - 5XX: Internal errors (programming defects)
package kberrors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	// Fatal for the adapter that hit them, never retried.
	CategoryConfig Category = "CONFIG"
	// CategoryTransient indicates timeouts, throttling, and transient
	// network failures. Retried with backoff, then degraded.
	CategoryTransient Category = "TRANSIENT"
	// CategoryValidation indicates input validation errors.
	// Surfaced to the caller immediately.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but the request can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound  = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid   = "ERR_102_CONFIG_INVALID"
	ErrCodeBadCredentials  = "ERR_103_BAD_CREDENTIALS"
	ErrCodeProviderMissing = "ERR_104_PROVIDER_MISSING"

	// Transient errors (300-399)
	ErrCodeTimeout     = "ERR_301_TIMEOUT"
	ErrCodeUnavailable = "ERR_302_UNAVAILABLE"
	ErrCodeRateLimited = "ERR_303_RATE_LIMITED"

	// Validation errors (400-499)
	ErrCodeInvalidInput = "ERR_401_INVALID_INPUT"
	ErrCodeQueryEmpty   = "ERR_402_QUERY_EMPTY"
	ErrCodeInvalidLimit = "ERR_403_INVALID_LIMIT"

	// Internal errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeFusionFailed = "ERR_502_FUSION_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '3':
		return CategoryTransient
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode derives severity from error code.
// Config errors are fatal for the adapter that hit them; transient errors
// degrade to warnings once retries exhaust; everything else is an error.
func severityFromCode(code string) Severity {
	switch categoryFromCode(code) {
	case CategoryConfig:
		return SeverityFatal
	case CategoryTransient:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// isRetryableCode reports whether an operation failing with this code
// may be retried.
func isRetryableCode(code string) bool {
	return categoryFromCode(code) == CategoryTransient
}
